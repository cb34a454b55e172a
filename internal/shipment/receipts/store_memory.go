package receipts

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps receipts in a slice, newest last. Used when Postgres
// is not configured and in tests.
type InMemoryStore struct {
	mu       sync.Mutex
	receipts []Receipt
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Record(_ context.Context, receipt Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, receipt)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.receipts) {
		limit = len(s.receipts)
	}

	// Newest first.
	out := make([]Receipt, 0, limit)
	for i := len(s.receipts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.receipts[i])
	}
	return out, nil
}

func (s *InMemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.receipts[:0]
	var pruned int64
	for _, r := range s.receipts {
		if r.CreatedAt.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, r)
	}
	s.receipts = kept
	return pruned, nil
}
