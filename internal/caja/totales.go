package caja

import (
	"time"

	"cajaescolar/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Totales is the financial snapshot of one caja. Every amount is rounded to
// cents on its own.
type Totales struct {
	InitialAmount    decimal.Decimal `json:"initial_amount"`
	Ingresos         decimal.Decimal `json:"ingresos"`
	GastosTotal      decimal.Decimal `json:"gastos_total"`
	IngresosEfectivo decimal.Decimal `json:"cash_ingresos"`
	GastosEfectivo   decimal.Decimal `json:"cash_gastos"`
	BalanceEfectivo  decimal.Decimal `json:"cash_balance"`
	// BalanceFinal is how much cash should physically be in the drawer
	BalanceFinal decimal.Decimal `json:"final_balance"`
	// Balance is method-agnostic and informational only
	Balance decimal.Decimal `json:"balance"`

	TransactionCount     int `json:"transaction_count"`
	GastoCount           int `json:"gasto_count"`
	CashTransactionCount int `json:"cash_transaction_count"`
	CashGastoCount       int `json:"cash_gasto_count"`
}

// CalcularTotales builds the Totales snapshot for c.
func CalcularTotales(c model.Caja) Totales {
	ingresos := decimal.Zero
	var realizadas, enEfectivo int
	for _, t := range c.Transactions {
		if esIngresoRealizado(t) {
			ingresos = ingresos.Add(t.Amount)
			realizadas++
		}
		if t.PaymentMethod == model.MetodoEfectivo {
			enEfectivo++
		}
	}

	gastosTotal := decimal.Zero
	var gastosEnEfectivo int
	for _, g := range c.Gastos {
		gastosTotal = gastosTotal.Add(g.Amount)
		if EsGastoEfectivo(g.Method) {
			gastosEnEfectivo++
		}
	}

	ingresosEf := IngresosEfectivo(c.Transactions)
	gastosEf := GastosEfectivo(c.Gastos)
	balanceEf := round2(ingresosEf.Sub(gastosEf))

	return Totales{
		InitialAmount:        round2(c.InitialAmount),
		Ingresos:             round2(ingresos),
		GastosTotal:          round2(gastosTotal),
		IngresosEfectivo:     ingresosEf,
		GastosEfectivo:       gastosEf,
		BalanceEfectivo:      balanceEf,
		BalanceFinal:         round2(c.InitialAmount.Add(balanceEf)),
		Balance:              round2(ingresos.Sub(gastosTotal)),
		TransactionCount:     realizadas,
		GastoCount:           len(c.Gastos),
		CashTransactionCount: enEfectivo,
		CashGastoCount:       gastosEnEfectivo,
	}
}

// CajaProcesada is the close-time view of a caja: totals, the opening
// denomination count and, once closed, the declared-vs-expected difference.
type CajaProcesada struct {
	ID            uuid.UUID        `json:"id"`
	PlantelID     uuid.UUID        `json:"plantel_id"`
	Status        model.EstadoCaja `json:"status"`
	FinalAmount   *decimal.Decimal `json:"final_amount"`
	NextDay       *decimal.Decimal `json:"next_day"`
	Observaciones *string          `json:"observaciones"`
	OpenedAt      *time.Time       `json:"opened_at"`
	ClosedAt      *time.Time       `json:"closed_at"`

	Totales

	DenominationBreakdown model.Denominaciones `json:"denomination_breakdown"`
	// MontoEfectivoReal is what the opening denominations say was put in
	MontoEfectivoReal     decimal.Decimal     `json:"actual_cash_amount"`
	TransaccionesEfectivo []model.Transaccion `json:"cash_transactions"`
	GastosEfectivoDetalle []model.Gasto       `json:"cash_gastos_detail"`
	// Diferencia is nil until the caja has a FinalAmount
	Diferencia *decimal.Decimal `json:"difference"`
	Cuadrada   bool             `json:"is_balanced"`
}

// umbralCuadre is the strict bound used by ProcesarCaja. ValidarBalance takes
// its tolerance from the caller instead.
var umbralCuadre = decimal.New(1, -2)

// ProcesarCaja returns the full close-time view of c. It never fails.
func ProcesarCaja(c model.Caja) CajaProcesada {
	desglose := model.Denominaciones{}
	for k, v := range c.InitialAmountCash {
		desglose[k] = v
	}

	p := CajaProcesada{
		ID:                    c.ID,
		PlantelID:             c.PlantelID,
		Status:                c.Status,
		FinalAmount:           c.FinalAmount,
		NextDay:               c.NextDay,
		Observaciones:         c.Observaciones,
		OpenedAt:              c.OpenedAt,
		ClosedAt:              c.ClosedAt,
		Totales:               CalcularTotales(c),
		DenominationBreakdown: desglose,
		MontoEfectivoReal:     TotalDenominaciones(desglose),
		TransaccionesEfectivo: transaccionesEfectivo(c.Transactions),
		GastosEfectivoDetalle: gastosEfectivo(c.Gastos),
	}

	if c.FinalAmount != nil {
		diff := round2(c.FinalAmount.Sub(p.BalanceFinal))
		p.Diferencia = &diff
		p.Cuadrada = diff.Abs().LessThan(umbralCuadre)
	}
	return p
}
