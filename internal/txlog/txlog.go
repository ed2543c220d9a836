// Package txlog stores enriched transactions in insertion order.
//
// The log owns transaction identity: Append assigns dense int64 ids starting
// at 1, never reused. Everything else — filtering, pagination, per-wallet
// lookups, summary counts — is read-only over the insertion order.
package txlog

import (
	"context"
	"time"

	"github.com/ticktrace/ticktrace/internal/risk"
)

// Transaction is one scored transfer, immutable once appended.
type Transaction struct {
	ID        int64      `json:"id"`
	Amount    float64    `json:"amount"`
	Source    string     `json:"source"`
	Dest      string     `json:"dest"`
	Tick      int64      `json:"tick"`
	Procedure string     `json:"procedure"`
	Time      time.Time  `json:"time"`
	RiskScore int        `json:"riskScore"`
	RiskLevel risk.Level `json:"riskLevel"`
	Reasons   []string   `json:"reasons"`
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	// Level keeps only transactions with this risk level.
	Level risk.Level
	// MinAmount / MaxAmount bound the amount when non-nil.
	MinAmount *float64
	MaxAmount *float64
	// Limit truncates to the most recent N when positive.
	Limit int
}

// Match reports whether a transaction passes the level and amount bounds.
func (f Filter) Match(tx *Transaction) bool {
	if f.Level != "" && tx.RiskLevel != f.Level {
		return false
	}
	if f.MinAmount != nil && tx.Amount < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && tx.Amount > *f.MaxAmount {
		return false
	}
	return true
}

// Store is the transaction log. Implementations must hand out dense,
// strictly increasing ids and preserve insertion order.
type Store interface {
	// Append assigns the next id to tx and stores it.
	Append(ctx context.Context, tx *Transaction) error
	// List returns matching transactions, newest first.
	List(ctx context.Context, f Filter) ([]*Transaction, error)
	// Latest returns the most recently appended transaction, or nil.
	Latest(ctx context.Context) (*Transaction, error)
	// ByWallet returns up to limit transactions where the wallet appears as
	// source or dest, newest first.
	ByWallet(ctx context.Context, walletID string, limit int) ([]*Transaction, error)
	// Count returns the total number of stored transactions.
	Count(ctx context.Context) (int64, error)
	// TotalVolume returns the sum of all stored amounts.
	TotalVolume(ctx context.Context) (float64, error)
	// CountsByLevel returns per-level transaction counts. Levels with no
	// transactions are absent from the map.
	CountsByLevel(ctx context.Context) (map[risk.Level]int64, error)
}

// clone deep-copies a transaction so stored state never aliases responses.
func clone(tx *Transaction) *Transaction {
	c := *tx
	if tx.Reasons != nil {
		c.Reasons = append([]string(nil), tx.Reasons...)
	}
	return &c
}
