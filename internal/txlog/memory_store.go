package txlog

import (
	"context"
	"sync"

	"github.com/ticktrace/ticktrace/internal/risk"
)

// MemoryStore keeps the log in an append-only slice. Default when no
// database is configured; contents vanish on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	txs    []*Transaction
	nextID int64
}

// NewMemoryStore creates an empty in-memory transaction log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(_ context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = s.nextID
	s.nextID++
	s.txs = append(s.txs, clone(tx))
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Transaction
	for i := len(s.txs) - 1; i >= 0; i-- {
		if !f.Match(s.txs[i]) {
			continue
		}
		result = append(result, clone(s.txs[i]))
		if f.Limit > 0 && len(result) == f.Limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryStore) Latest(_ context.Context) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.txs) == 0 {
		return nil, nil
	}
	return clone(s.txs[len(s.txs)-1]), nil
}

func (s *MemoryStore) ByWallet(_ context.Context, walletID string, limit int) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Transaction
	for i := len(s.txs) - 1; i >= 0; i-- {
		tx := s.txs[i]
		if tx.Source != walletID && tx.Dest != walletID {
			continue
		}
		result = append(result, clone(tx))
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.txs)), nil
}

func (s *MemoryStore) TotalVolume(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, tx := range s.txs {
		total += tx.Amount
	}
	return total, nil
}

func (s *MemoryStore) CountsByLevel(_ context.Context) (map[risk.Level]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[risk.Level]int64)
	for _, tx := range s.txs {
		counts[tx.RiskLevel]++
	}
	return counts, nil
}
