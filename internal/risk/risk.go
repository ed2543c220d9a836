// Package risk implements deterministic fraud scoring for ledger transactions.
//
// Every transaction is evaluated against a fixed additive rule table: amount
// bands, procedure weights, source-wallet history signals, and a
// self-transfer check. Each rule that fires adds its weight to the total and
// appends exactly one human-readable reason, in rule order. The total is
// capped at 100 and classified into four ordinal levels. Scoring is a pure
// function — no I/O, no stored state, repeatable for identical inputs.
package risk

import "strings"

// Level is the ordinal risk classification derived from a score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Classification thresholds, evaluated highest first.
const (
	ThresholdCritical = 85
	ThresholdHigh     = 65
	ThresholdMedium   = 40
)

// Levels lists all levels in ascending severity order.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// ParseLevel matches a string against the known levels, case-insensitively.
// Returns false for anything that is not one of the four levels.
func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return "", false
}

// LevelFromScore maps a capped score onto its level.
func LevelFromScore(score int) Level {
	switch {
	case score >= ThresholdCritical:
		return LevelCritical
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Transaction carries the normalized fields the engine needs to score a
// transfer. Populated by the ingestion flow — no extra lookups required.
type Transaction struct {
	Amount    float64
	Source    string
	Dest      string
	Tick      int64
	Procedure string
}

// History is the pre-transaction view of the source wallet's statistics.
// A nil *History means the source wallet has never been seen.
type History struct {
	TxCount  int64
	AvgRisk  float64
	LastTick *int64
}

// Assessment is the result of scoring a single transaction.
type Assessment struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Reasons []string `json:"reasons"`
}
