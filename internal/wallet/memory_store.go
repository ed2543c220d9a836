package wallet

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-memory Store used when no database is configured.
// State lives for the process lifetime; there is no eviction.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*Snapshot)}
}

func (s *MemoryStore) Get(_ context.Context, walletID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snaps[walletID].Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.WalletID] = snap.Clone()
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.snaps)), nil
}

func (s *MemoryStore) TopByAvgRisk(_ context.Context, limit int) ([]*Snapshot, error) {
	s.mu.RLock()
	all := make([]*Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		all = append(all, snap.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].AvgRisk != all[j].AvgRisk {
			return all[i].AvgRisk > all[j].AvgRisk
		}
		return all[i].WalletID < all[j].WalletID
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
