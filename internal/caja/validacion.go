package caja

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToleranciaPredeterminada absorbs sub-cent noise; it is not meant to hide
// real shortages.
var ToleranciaPredeterminada = decimal.New(1, -2)

// Validacion is the result of comparing a declared closing amount with the
// expected one.
type Validacion struct {
	Valido     bool            `json:"is_valid"`
	Diferencia decimal.Decimal `json:"difference"`
	Mensaje    string          `json:"message"`
}

// ValidarBalance compares final against esperado. An optional tolerance
// overrides ToleranciaPredeterminada.
func ValidarBalance(final, esperado decimal.Decimal, tolerancia ...decimal.Decimal) Validacion {
	tol := ToleranciaPredeterminada
	if len(tolerancia) > 0 {
		tol = tolerancia[0].Abs()
	}

	diff := round2(final.Sub(esperado))
	v := Validacion{
		Valido:     diff.Abs().LessThanOrEqual(tol),
		Diferencia: diff,
	}
	switch {
	case v.Valido:
	case diff.IsPositive():
		v.Mensaje = fmt.Sprintf("Hay un sobrante de $%s", diff.Abs().StringFixed(2))
	default:
		v.Mensaje = fmt.Sprintf("Hay un faltante de $%s", diff.Abs().StringFixed(2))
	}
	return v
}
