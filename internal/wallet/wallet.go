// Package wallet tracks per-wallet behavioral statistics used to influence
// future risk scores.
//
// A snapshot exists for a wallet identifier iff that identifier has appeared
// as a non-empty source or dest in at least one ingested transaction.
// Snapshots are updated twice per transaction — once for each side — with the
// same assessment, which was computed from the source wallet's history only.
// The destination therefore absorbs a score derived from someone else's
// history. That asymmetry is inherited from the upstream feed and kept for
// compatibility; do not "fix" it here without revisiting the contract.
package wallet

import (
	"context"
	"time"

	"github.com/ticktrace/ticktrace/internal/risk"
)

// Snapshot is the aggregated view of one wallet's activity.
type Snapshot struct {
	WalletID    string     `json:"walletId"`
	TxCount     int64      `json:"txCount"`
	TotalVolume float64    `json:"totalVolume"`
	AvgRisk     float64    `json:"avgRisk"`
	LastTick    *int64     `json:"lastTick"`
	LastTime    *time.Time `json:"lastTime"`
}

// Clone returns a deep copy so callers can hand snapshots across API
// boundaries without aliasing store-owned state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastTick != nil {
		v := *s.LastTick
		c.LastTick = &v
	}
	if s.LastTime != nil {
		v := *s.LastTime
		c.LastTime = &v
	}
	return &c
}

// Store persists wallet snapshots.
type Store interface {
	// Get returns the snapshot for a wallet, or nil if the wallet has never
	// been seen.
	Get(ctx context.Context, walletID string) (*Snapshot, error)
	// Put creates or replaces a snapshot.
	Put(ctx context.Context, snap *Snapshot) error
	// Count returns the number of tracked wallets.
	Count(ctx context.Context) (int64, error)
	// TopByAvgRisk returns up to limit snapshots ordered by avgRisk
	// descending, wallet id ascending on ties.
	TopByAvgRisk(ctx context.Context, limit int) ([]*Snapshot, error)
}

// Tracker applies incremental statistics updates on top of a Store.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// WithClock overrides the time source (for tests).
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// History returns the source-perspective view of a wallet as the scoring
// engine expects it: nil when the wallet has never been seen.
func (t *Tracker) History(ctx context.Context, walletID string) (*risk.History, error) {
	if walletID == "" {
		return nil, nil
	}
	snap, err := t.store.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	h := &risk.History{
		TxCount: snap.TxCount,
		AvgRisk: snap.AvgRisk,
	}
	if snap.LastTick != nil {
		v := *snap.LastTick
		h.LastTick = &v
	}
	return h, nil
}

// Apply folds one transaction into a wallet's snapshot. An empty wallet
// identifier is a no-op. The snapshot is created lazily on first reference.
//
// The mean update is exact: after n applications avgRisk equals the
// arithmetic mean of the n scores applied.
func (t *Tracker) Apply(ctx context.Context, walletID string, amount float64, tick int64, score int) error {
	if walletID == "" {
		return nil
	}

	snap, err := t.store.Get(ctx, walletID)
	if err != nil {
		return err
	}
	if snap == nil {
		snap = &Snapshot{WalletID: walletID}
	}

	snap.TxCount++
	snap.TotalVolume += amount
	snap.AvgRisk = (snap.AvgRisk*float64(snap.TxCount-1) + float64(score)) / float64(snap.TxCount)
	snap.LastTick = &tick
	now := t.now().UTC()
	snap.LastTime = &now

	return t.store.Put(ctx, snap)
}

// Snapshot returns the stored snapshot for a wallet, or nil if unseen.
func (t *Tracker) Snapshot(ctx context.Context, walletID string) (*Snapshot, error) {
	if walletID == "" {
		return nil, nil
	}
	return t.store.Get(ctx, walletID)
}
