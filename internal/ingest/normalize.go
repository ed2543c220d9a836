package ingest

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/ticktrace/ticktrace/internal/risk"
)

// Normalize converts a decoded request body into a typed transaction input.
// The pipeline sends either a flat object or a {"data": {...}} envelope;
// every field is optional. Coercion rules, applied explicitly rather than
// inherited from the decoder:
//
//   - missing or non-numeric numeric fields become 0
//   - negative amounts clamp to 0 (amounts are non-negative by contract)
//   - missing or non-string string fields become ""
//   - ticks truncate toward zero
func Normalize(body map[string]any) risk.Transaction {
	if data, ok := body["data"].(map[string]any); ok {
		body = data
	}

	amount := toNumber(body["amount"])
	if amount < 0 {
		amount = 0
	}

	return risk.Transaction{
		Amount:    amount,
		Source:    toString(body["source"]),
		Dest:      toString(body["dest"]),
		Tick:      int64(toNumber(body["tick"])),
		Procedure: toString(body["procedure"]),
	}
}

func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return finite(f)
	case string:
		// ParseFloat accepts "NaN" and "Inf", which are not numbers here.
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return finite(f)
	default:
		return 0
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
