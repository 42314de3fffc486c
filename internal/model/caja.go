package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoCaja is the two-state lifecycle of a till session.
type EstadoCaja string

const (
	EstadoAbierta EstadoCaja = "abierta"
	EstadoCerrada EstadoCaja = "cerrada"
)

func (e EstadoCaja) Valid() bool {
	switch e {
	case EstadoAbierta, EstadoCerrada:
		return true
	}
	return false
}

// PuedePasarA reports whether the lifecycle allows moving from e to next.
// The only transition is abierta → cerrada; a closed caja is never reopened.
func (e EstadoCaja) PuedePasarA(next EstadoCaja) bool {
	switch e {
	case EstadoAbierta:
		return next == EstadoCerrada
	case EstadoCerrada:
		return false
	}
	return false
}

// MetodoPago labels how a transaction was paid. Values match the backend.
type MetodoPago string

const (
	MetodoEfectivo      MetodoPago = "cash"
	MetodoTarjeta       MetodoPago = "card"
	MetodoTransferencia MetodoPago = "transfer"
)

func (m MetodoPago) Valid() bool {
	switch m {
	case MetodoEfectivo, MetodoTarjeta, MetodoTransferencia:
		return true
	}
	return false
}

// TipoTransaccion: only "income" rows are summed as ingress. Money leaving the
// drawer is modelled with Gasto.
type TipoTransaccion string

const (
	TipoIngreso TipoTransaccion = "income"
	TipoEgreso  TipoTransaccion = "expense"
)

func (t TipoTransaccion) Valid() bool {
	switch t {
	case TipoIngreso, TipoEgreso:
		return true
	}
	return false
}

// Caja is a till session for one plantel. It is the aggregate root for
// Transactions and Gastos.
//
// FinalAmount and ClosedAt are nil while Status is abierta and both set once
// it is cerrada. NextDay is what gets carried into the next session's
// InitialAmount; it may differ from FinalAmount (e.g. part of the cash was
// deposited to the bank).
type Caja struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PlantelID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"plantel_id"`
	UsuarioID         uuid.UUID        `gorm:"type:uuid;not null" json:"usuario_id"`
	Status            EstadoCaja       `gorm:"type:varchar(20);not null;default:'abierta'" json:"status"`
	InitialAmount     decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"initial_amount"`
	InitialAmountCash Denominaciones   `gorm:"type:jsonb" json:"initial_amount_cash"`
	FinalAmount       *decimal.Decimal `gorm:"type:decimal(12,2)" json:"final_amount"`
	NextDay           *decimal.Decimal `gorm:"type:decimal(12,2)" json:"next_day"`
	Observaciones     *string          `json:"observaciones"`
	OpenedAt          *time.Time       `json:"opened_at"`
	ClosedAt          *time.Time       `json:"closed_at"`

	Transactions []Transaccion `gorm:"foreignKey:CajaID" json:"transactions"`
	Gastos       []Gasto       `gorm:"foreignKey:CajaID" json:"gastos"`
}

// Transaccion is a payment received at the till. Rows are append-only.
type Transaccion struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CajaID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"caja_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod   MetodoPago      `gorm:"type:varchar(20);not null" json:"payment_method"`
	TransactionType TipoTransaccion `gorm:"type:varchar(20);not null;default:'income'" json:"transaction_type"`
	Paid            Flag            `gorm:"type:smallint;not null;default:0" json:"paid"`
	Concept         string          `json:"concept"`
	// AlumnoID links the payment to a student when it is a tuition charge
	AlumnoID  *uuid.UUID `gorm:"type:uuid" json:"student_id"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Transaccion) TableName() string { return "transacciones" }

// Gasto is money taken out of the till. Method is free text as labelled by the
// backend; only "cash" and "Efectivo" count as cash.
type Gasto struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CajaID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"caja_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(40);not null" json:"method"`
	Date      time.Time       `gorm:"type:date" json:"date"`
	Category  string          `json:"category"`
	Concept   string          `json:"concept"`
	CreatedAt time.Time       `json:"created_at"`
}
