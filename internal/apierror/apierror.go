// Package apierror holds the JSON envelopes for every 4xx/5xx response.
// Handlers never serialise raw errors from the database or the driver.
package apierror

// APIError is the canonical error envelope.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError lists the failed validator tag per field.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// Interno is the only message a client sees for a 500.
func Interno() *APIError {
	return New("Error interno del servidor")
}
