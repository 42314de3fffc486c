package caja

import (
	"strings"

	"cajaescolar/internal/model"

	"github.com/shopspring/decimal"
)

// TotalDenominaciones returns Σ faceValue × count over d, rounded to cents.
// A nil map totals 0; keys that are not numbers contribute 0.
func TotalDenominaciones(d model.Denominaciones) decimal.Decimal {
	total := decimal.Zero
	for clave, cantidad := range d {
		valor, ok := valorFacial(clave)
		if !ok {
			continue
		}
		total = total.Add(valor.Mul(decimal.NewFromInt(cantidad)))
	}
	return round2(total)
}

func valorFacial(clave string) (decimal.Decimal, bool) {
	clave = strings.TrimSpace(clave)
	if clave == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(clave)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
