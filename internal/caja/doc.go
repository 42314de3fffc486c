// Package caja computes a till session's cash position and reconciles it
// against the amount counted at close.
//
// Everything here is pure: functions take an already-loaded model.Caja, never
// touch I/O and never return errors. Malformed input (missing amounts,
// unparseable denomination keys) degrades to zero instead of failing, so the
// same call is safe from any request path, repeatedly.
//
// All money is shopspring/decimal and every aggregate is rounded to cents.
package caja

import "github.com/shopspring/decimal"

var medioCentavo = decimal.New(5, -1)

// round2 rounds to cents with ties going up (toward +inf), so -0.005 is 0.00
// and 0.005 is 0.01.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(medioCentavo).Floor().Shift(-2)
}
