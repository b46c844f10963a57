package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tjfontaine/recommendation-gateway/internal/storage"
)

// DefaultCapacity bounds how many records the store keeps.
const DefaultCapacity = 10000

// Store is an in-memory implementation of InvocationStore. Once full it
// drops the oldest record for each new one.
type Store struct {
	mu       sync.RWMutex
	records  []*storage.InvocationRecord
	capacity int
}

var _ storage.InvocationStore = (*Store)(nil)

// New creates a new in-memory store holding up to capacity records.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

func (s *Store) RecordInvocation(ctx context.Context, rec *storage.InvocationRecord) error {
	if rec == nil {
		return fmt.Errorf("nil invocation record")
	}
	rec.Stamp()
	stored := *rec

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) >= s.capacity {
		copy(s.records, s.records[1:])
		s.records = s.records[:len(s.records)-1]
	}
	s.records = append(s.records, &stored)
	return nil
}

func (s *Store) ListInvocations(ctx context.Context, opts storage.ListOptions) ([]*storage.InvocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.EffectiveLimit()
	result := []*storage.InvocationRecord{}
	for i := len(s.records) - 1; i >= 0 && len(result) < limit; i-- {
		rec := s.records[i]
		if opts.Operation != "" && rec.Operation != opts.Operation {
			continue
		}
		if opts.Subject != "" && rec.Subject != opts.Subject {
			continue
		}
		cp := *rec
		result = append(result, &cp)
	}
	return result, nil
}

func (s *Store) Close() error {
	return nil
}
