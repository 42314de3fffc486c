package caja

import (
	"time"

	"cajaescolar/internal/model"

	"github.com/shopspring/decimal"
)

const sinFecha = "-"

// FilaTabla is one row of the cajas list.
type FilaTabla struct {
	ID                   string           `json:"id"`
	Status               model.EstadoCaja `json:"status"`
	OpenedAt             string           `json:"opened_at"`
	ClosedAt             string           `json:"closed_at"`
	InitialAmount        decimal.Decimal  `json:"initial_amount"`
	Ingresos             decimal.Decimal  `json:"ingresos"`
	GastosTotal          decimal.Decimal  `json:"gastos_total"`
	IngresosEfectivo     decimal.Decimal  `json:"cash_ingresos"`
	GastosEfectivo       decimal.Decimal  `json:"cash_gastos"`
	BalanceFinal         decimal.Decimal  `json:"final_balance"`
	FinalAmount          *decimal.Decimal `json:"final_amount"`
	NextDay              *decimal.Decimal `json:"next_day"`
	MontoEfectivoReal    decimal.Decimal  `json:"actual_cash_amount"`
	Diferencia           *decimal.Decimal `json:"difference"`
	Cuadrada             bool             `json:"is_balanced"`
	TransactionCount     int              `json:"transaction_count"`
	GastoCount           int              `json:"gasto_count"`
	CashTransactionCount int              `json:"cash_transaction_count"`
	CashGastoCount       int              `json:"cash_gasto_count"`
}

// FormatearParaTabla projects ProcesarCaja(c) into a flat row.
func FormatearParaTabla(c model.Caja) FilaTabla {
	p := ProcesarCaja(c)
	return FilaTabla{
		ID:                   p.ID.String(),
		Status:               p.Status,
		OpenedAt:             fechaOGuion(p.OpenedAt),
		ClosedAt:             fechaOGuion(p.ClosedAt),
		InitialAmount:        p.InitialAmount,
		Ingresos:             p.Ingresos,
		GastosTotal:          p.GastosTotal,
		IngresosEfectivo:     p.IngresosEfectivo,
		GastosEfectivo:       p.GastosEfectivo,
		BalanceFinal:         p.BalanceFinal,
		FinalAmount:          p.FinalAmount,
		NextDay:              p.NextDay,
		MontoEfectivoReal:    p.MontoEfectivoReal,
		Diferencia:           p.Diferencia,
		Cuadrada:             p.Cuadrada,
		TransactionCount:     p.TransactionCount,
		GastoCount:           p.GastoCount,
		CashTransactionCount: p.CashTransactionCount,
		CashGastoCount:       p.CashGastoCount,
	}
}

func fechaOGuion(t *time.Time) string {
	if t == nil || t.IsZero() {
		return sinFecha
	}
	return t.Format(time.RFC3339)
}
