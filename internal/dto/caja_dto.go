package dto

import (
	"time"

	"cajaescolar/internal/caja"
	"cajaescolar/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	// PlantelID is only honoured for users not bound to a plantel
	PlantelID string `json:"plantel_id" validate:"omitempty,uuid"`
	// MontoInicial nil means "carry over next_day from the last closed caja"
	MontoInicial   *decimal.Decimal     `json:"initial_amount"      validate:"omitempty,min=0"`
	Denominaciones model.Denominaciones `json:"initial_amount_cash"`
}

type RegistrarTransaccionRequest struct {
	Amount          decimal.Decimal `json:"amount"           validate:"required,gt=0"`
	PaymentMethod   string          `json:"payment_method"   validate:"required,oneof=cash card transfer"`
	TransactionType string          `json:"transaction_type" validate:"omitempty,oneof=income expense"`
	Paid            *bool           `json:"paid"`
	Concept         string          `json:"concept"          validate:"required,min=3"`
	AlumnoID        string          `json:"student_id"       validate:"omitempty,uuid"`
}

type RegistrarGastoRequest struct {
	Amount   decimal.Decimal `json:"amount"   validate:"required,gt=0"`
	Method   string          `json:"method"   validate:"required,max=40"`
	Date     *time.Time      `json:"date"`
	Category string          `json:"category" validate:"required"`
	Concept  string          `json:"concept"  validate:"required,min=3"`
}

type CerrarCajaRequest struct {
	FinalAmount *decimal.Decimal `json:"final_amount" validate:"required,min=0"`
	// NextDay is stored as given; nil leaves it empty
	NextDay       *decimal.Decimal `json:"next_day" validate:"omitempty,min=0"`
	Observaciones *string          `json:"observaciones"`
}

type ValidarBalanceRequest struct {
	FinalAmount    decimal.Decimal  `json:"final_amount"`
	ExpectedAmount decimal.Decimal  `json:"expected_amount"`
	Tolerancia     *decimal.Decimal `json:"tolerance" validate:"omitempty,min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CierreCajaResponse struct {
	Caja       caja.CajaProcesada `json:"caja"`
	Validacion caja.Validacion    `json:"validacion"`
}

type ListaCajasResponse struct {
	Data  []caja.FilaTabla `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
