// Package counter provides CounterStore implementations for the serial
// ledger: in-memory for tests and single-node use, PostgreSQL and Redis for
// shared deployments.
package counter

import (
	"context"
	"sync"

	"trackmark/pkg/domain"
)

// partitionState is one partition's slice of the ledger.
type partitionState struct {
	lastIssued int
	reserved   map[int]struct{}
}

// InMemoryStore implements the counter ledger with a process-local map.
type InMemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]*partitionState
}

// NewInMemoryStore creates an empty in-memory ledger.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{partitions: make(map[string]*partitionState)}
}

// ReadCounter returns lastIssued; unknown partitions read as 0.
func (s *InMemoryStore) ReadCounter(_ context.Context, key domain.PartitionKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.partitions[key.String()]; ok {
		return p.lastIssued, nil
	}
	return 0, nil
}

// CompareAndSwapCounter advances the counter iff it still equals expected.
func (s *InMemoryStore) CompareAndSwapCounter(_ context.Context, key domain.PartitionKey, expected, next int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(key)
	if p.lastIssued != expected {
		return false, nil
	}
	p.lastIssued = next
	return true, nil
}

// ReadReservedSerials returns a copy of the partition's reservation set.
func (s *InMemoryStore) ReadReservedSerials(_ context.Context, key domain.PartitionKey) (map[int]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]struct{})
	if p, ok := s.partitions[key.String()]; ok {
		for serial := range p.reserved {
			out[serial] = struct{}{}
		}
	}
	return out, nil
}

// RecordReservation marks a serial as explicitly reserved.
func (s *InMemoryStore) RecordReservation(_ context.Context, key domain.PartitionKey, serial int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(key)
	p.reserved[serial] = struct{}{}
	return nil
}

func (s *InMemoryStore) getOrCreate(key domain.PartitionKey) *partitionState {
	k := key.String()
	p, ok := s.partitions[k]
	if !ok {
		p = &partitionState{reserved: make(map[int]struct{})}
		s.partitions[k] = p
	}
	return p
}
