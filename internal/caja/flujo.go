package caja

import (
	"cajaescolar/internal/model"

	"github.com/shopspring/decimal"
)

// Expense method labels that count as cash. The match is exact and
// case-sensitive: the backend writes both spellings and nothing else.
const (
	gastoMetodoCash     = "cash"
	gastoMetodoEfectivo = "Efectivo"
)

// EsGastoEfectivo reports whether an expense method label means cash.
func EsGastoEfectivo(metodo string) bool {
	return metodo == gastoMetodoCash || metodo == gastoMetodoEfectivo
}

// IngresosEfectivo sums every cash-method transaction, whatever its type or
// paid flag.
func IngresosEfectivo(txs []model.Transaccion) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.PaymentMethod == model.MetodoEfectivo {
			total = total.Add(t.Amount)
		}
	}
	return round2(total)
}

// GastosEfectivo sums every expense whose method is a cash alias.
func GastosEfectivo(gastos []model.Gasto) decimal.Decimal {
	total := decimal.Zero
	for _, g := range gastos {
		if EsGastoEfectivo(g.Method) {
			total = total.Add(g.Amount)
		}
	}
	return round2(total)
}

func transaccionesEfectivo(txs []model.Transaccion) []model.Transaccion {
	out := make([]model.Transaccion, 0, len(txs))
	for _, t := range txs {
		if t.PaymentMethod == model.MetodoEfectivo {
			out = append(out, t)
		}
	}
	return out
}

func gastosEfectivo(gastos []model.Gasto) []model.Gasto {
	out := make([]model.Gasto, 0, len(gastos))
	for _, g := range gastos {
		if EsGastoEfectivo(g.Method) {
			out = append(out, g)
		}
	}
	return out
}

func esIngresoRealizado(t model.Transaccion) bool {
	return t.TransactionType == model.TipoIngreso && t.Paid.Activo()
}
