package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and for running without a
// database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Create(_ context.Context, text, paymentSignature string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		ID:               uuid.NewString(),
		Text:             text,
		Laugh:            0,
		CreatedAt:        time.Now().UTC(),
		PaymentSignature: paymentSignature,
	}
	s.records[rec.ID] = rec
	out := *rec
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) AddLaugh(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Laugh++
	out := *rec
	return &out, nil
}

var _ Store = (*MemoryStore)(nil)
