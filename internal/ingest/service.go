// Package ingest runs the transaction pipeline: normalize the raw event,
// score it against the source wallet's prior history, record it in the log,
// then fold it into both wallets' statistics. It also assembles the read
// models (summary, wallet profile) the dashboard consumes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ticktrace/ticktrace/internal/metrics"
	"github.com/ticktrace/ticktrace/internal/risk"
	"github.com/ticktrace/ticktrace/internal/traces"
	"github.com/ticktrace/ticktrace/internal/txlog"
	"github.com/ticktrace/ticktrace/internal/wallet"
)

// ErrWalletNotFound is returned for wallet ids with no snapshot and no
// transactions.
var ErrWalletNotFound = errors.New("wallet not found")

// walletTxLimit caps the transactions returned in a wallet profile.
const walletTxLimit = 50

// Broadcaster receives each scored transaction for live feeds. Implemented
// by the realtime hub; nil disables broadcasting.
type Broadcaster interface {
	BroadcastTransaction(tx *txlog.Transaction)
}

// Service owns the ingestion pipeline and its read models.
//
// One mutex covers the whole read-score-append-update sequence so that
// concurrent requests touching the same wallet cannot interleave between
// reading a snapshot and updating it.
type Service struct {
	mu      sync.Mutex
	log     txlog.Store
	wallets *wallet.Tracker
	wstore  wallet.Store
	hub     Broadcaster
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the pipeline over a transaction log and wallet store.
func NewService(log txlog.Store, wstore wallet.Store, logger *slog.Logger) *Service {
	return &Service{
		log:     log,
		wallets: wallet.NewTracker(wstore),
		wstore:  wstore,
		logger:  logger,
		now:     time.Now,
	}
}

// WithBroadcaster attaches a live feed for scored transactions.
func (s *Service) WithBroadcaster(hub Broadcaster) *Service {
	s.hub = hub
	return s
}

// WithClock overrides the ingestion time source (for tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest processes one raw event to completion and returns the enriched
// transaction. The scoring itself never fails; errors come only from the
// underlying stores, and a store failure before the append leaves no trace
// of the event.
func (s *Service) Ingest(ctx context.Context, body map[string]any) (*txlog.Transaction, error) {
	ctx, span := traces.StartSpan(ctx, "ingest.transaction")
	defer span.End()

	norm := Normalize(body)
	span.SetAttributes(
		traces.Wallet(norm.Source),
		traces.Procedure(norm.Procedure),
		traces.Amount(norm.Amount),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot of the source wallet as it was before this transaction.
	hist, err := s.wallets.History(ctx, norm.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet history: %w", err)
	}

	assessment := risk.Score(norm, hist)
	span.SetAttributes(traces.RiskLevel(string(assessment.Level)), traces.RiskScore(assessment.Score))
	if assessment.Reasons == nil {
		assessment.Reasons = []string{}
	}

	tx := &txlog.Transaction{
		Amount:    norm.Amount,
		Source:    norm.Source,
		Dest:      norm.Dest,
		Tick:      norm.Tick,
		Procedure: norm.Procedure,
		Time:      s.now().UTC(),
		RiskScore: assessment.Score,
		RiskLevel: assessment.Level,
		Reasons:   assessment.Reasons,
	}
	if err := s.log.Append(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	// Both sides absorb the same source-perspective assessment.
	if err := s.wallets.Apply(ctx, norm.Source, norm.Amount, norm.Tick, assessment.Score); err != nil {
		return nil, fmt.Errorf("failed to update source wallet: %w", err)
	}
	if err := s.wallets.Apply(ctx, norm.Dest, norm.Amount, norm.Tick, assessment.Score); err != nil {
		return nil, fmt.Errorf("failed to update dest wallet: %w", err)
	}

	metrics.TransactionsScoredTotal.WithLabelValues(string(assessment.Level)).Inc()
	metrics.TransactionVolumeTotal.Add(norm.Amount)
	if n, err := s.wstore.Count(ctx); err == nil {
		metrics.TrackedWallets.Set(float64(n))
	}

	s.logger.Info("transaction scored",
		"id", tx.ID,
		"source", tx.Source,
		"dest", tx.Dest,
		"amount", tx.Amount,
		"score", tx.RiskScore,
		"level", tx.RiskLevel,
	)

	if s.hub != nil {
		s.hub.BroadcastTransaction(tx)
	}

	return tx, nil
}

// List returns stored transactions, newest first, per the filter.
func (s *Service) List(ctx context.Context, f txlog.Filter) ([]*txlog.Transaction, error) {
	return s.log.List(ctx, f)
}

// Latest returns the most recently ingested transaction, or nil.
func (s *Service) Latest(ctx context.Context) (*txlog.Transaction, error) {
	return s.log.Latest(ctx)
}

// Summary is the system-wide risk overview for the dashboard.
type Summary struct {
	TotalTransactions int64                `json:"totalTransactions"`
	TotalVolume       float64              `json:"totalVolume"`
	ByLevel           map[risk.Level]int64 `json:"byLevel"`
	UniqueWallets     int64                `json:"uniqueWallets"`
	TopWallets        []*wallet.Snapshot   `json:"topWallets"`
	Recent            []*txlog.Transaction `json:"recent"`
}

// Summarize assembles the dashboard overview. ByLevel always carries all
// four levels, so the counts visibly partition the total.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	total, err := s.log.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	volume, err := s.log.TotalVolume(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum volume: %w", err)
	}
	counts, err := s.log.CountsByLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count by level: %w", err)
	}
	byLevel := make(map[risk.Level]int64, len(risk.Levels))
	for _, l := range risk.Levels {
		byLevel[l] = counts[l]
	}

	wallets, err := s.wstore.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count wallets: %w", err)
	}
	top, err := s.wstore.TopByAvgRisk(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to rank wallets: %w", err)
	}
	recent, err := s.log.List(ctx, txlog.Filter{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	if top == nil {
		top = []*wallet.Snapshot{}
	}
	if recent == nil {
		recent = []*txlog.Transaction{}
	}

	return &Summary{
		TotalTransactions: total,
		TotalVolume:       volume,
		ByLevel:           byLevel,
		UniqueWallets:     wallets,
		TopWallets:        top,
		Recent:            recent,
	}, nil
}

// WalletProfile pairs a wallet's statistics with its recent transactions.
// Stats stays nullable to match the wire contract.
type WalletProfile struct {
	WalletID     string               `json:"walletId"`
	Stats        *wallet.Snapshot     `json:"stats"`
	Transactions []*txlog.Transaction `json:"transactions"`
}

// WalletProfile returns the profile for a wallet id, or ErrWalletNotFound if
// neither a snapshot nor any transaction references it.
func (s *Service) WalletProfile(ctx context.Context, walletID string) (*WalletProfile, error) {
	snap, err := s.wstore.Get(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet snapshot: %w", err)
	}
	txs, err := s.log.ByWallet(ctx, walletID, walletTxLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	if snap == nil && len(txs) == 0 {
		return nil, ErrWalletNotFound
	}
	if txs == nil {
		txs = []*txlog.Transaction{}
	}
	return &WalletProfile{
		WalletID:     walletID,
		Stats:        snap,
		Transactions: txs,
	}, nil
}
