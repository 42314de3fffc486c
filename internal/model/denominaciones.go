package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Denominaciones maps a bill/coin face value ("500", "0.5") to a unit count.
//
// Stored values come either as a JSON object or as a JSON-encoded string of
// one. Both are decoded here, once; anything unparseable becomes an empty map
// so a bad row never breaks the close-out flow.
type Denominaciones map[string]int64

// ParseDenominaciones decodes raw JSON (object, string-wrapped object or null).
// It never fails: malformed input yields an empty map.
func ParseDenominaciones(raw []byte) Denominaciones {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Denominaciones{}
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Denominaciones{}
		}
		return ParseDenominaciones([]byte(inner))
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Denominaciones{}
	}
	out := make(Denominaciones, len(generic))
	for k, v := range generic {
		out[k] = coerceCount(v)
	}
	return out
}

// maxConteo bounds the magnitude of a single denomination count. Fractional
// or larger counts are garbage and count as 0.
const maxConteo = 1 << 40

func coerceCount(v any) int64 {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > maxConteo {
			return 0
		}
		return int64(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil || i > maxConteo || i < -maxConteo {
			return 0
		}
		return i
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func (d *Denominaciones) UnmarshalJSON(data []byte) error {
	*d = ParseDenominaciones(data)
	return nil
}

// Scan implements sql.Scanner for the jsonb column.
func (d *Denominaciones) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		*d = ParseDenominaciones(v)
	case string:
		*d = ParseDenominaciones([]byte(v))
	default:
		*d = Denominaciones{}
	}
	return nil
}

// Value implements driver.Valuer.
func (d Denominaciones) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int64(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Flag is a 0/1 marker. The backend sends it as a number, a bool or a string.
type Flag int

func (f Flag) Activo() bool { return f == 1 }

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch s {
	case "1", "true":
		*f = 1
	default:
		*f = 0
	}
	return nil
}
