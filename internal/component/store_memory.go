package component

import (
	"context"
	"sort"
	"sync"
	"time"

	"trackmark/pkg/domain"
	"trackmark/pkg/platform/sentinel"
)

// InMemoryStore keeps records in process memory. Used by tests and
// single-node deployments without Postgres.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Insert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Encoded]; ok {
		return sentinel.ErrConflict
	}
	s.records[record.Encoded] = record
	return nil
}

func (s *InMemoryStore) GetByEncoded(_ context.Context, encoded string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[encoded]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) Search(_ context.Context, filter SearchFilter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		if matches(record, filter) {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Encoded < matched[j].Encoded
	})

	return paginate(matched, filter.Offset, filter.Limit), nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, encoded string, status domain.Status) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[encoded]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	s.records[encoded] = record
	return record, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		ByType:   make(map[domain.ComponentType]int),
		ByRegion: make(map[string]int),
		ByStatus: make(map[domain.Status]int),
		ByYear:   make(map[int]int),
	}
	for _, record := range s.records {
		stats.Total++
		stats.ByType[record.Identifier.ComponentType]++
		stats.ByRegion[record.Identifier.Region]++
		stats.ByStatus[record.Status]++
		stats.ByYear[record.Identifier.Year]++
	}
	return stats, nil
}

func matches(record Record, filter SearchFilter) bool {
	if filter.Region != "" && record.Identifier.Region != filter.Region {
		return false
	}
	if filter.Division != "" && record.Identifier.Division != filter.Division {
		return false
	}
	if filter.ComponentType != "" && record.Identifier.ComponentType != filter.ComponentType {
		return false
	}
	if filter.Year != 0 && record.Identifier.Year != filter.Year {
		return false
	}
	if filter.Status != "" && record.Status != filter.Status {
		return false
	}
	return true
}

func paginate(records []Record, offset, limit int) []Record {
	if offset >= len(records) {
		return []Record{}
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
