package dto

import "github.com/shopspring/decimal"

type ActualizarConfiguracionRequest struct {
	NombreMostrado      string           `json:"nombre_mostrado"      validate:"omitempty,max=120"`
	EmailNotificaciones *string          `json:"email_notificaciones" validate:"omitempty,email"`
	ToleranciaCierre    *decimal.Decimal `json:"tolerancia_cierre"    validate:"omitempty,min=0"`
	Denominaciones      []string         `json:"denominaciones"       validate:"omitempty,dive,numeric"`
}
