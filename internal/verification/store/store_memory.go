package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vouch/internal/sentinel"
	"vouch/internal/verification/models"
)

// InMemoryStore keeps verification records in memory. Used for tests
// and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Record
}

// NewInMemory constructs an empty in-memory verification store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*models.Record),
	}
}

func (s *InMemoryStore) CreatePending(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.RequesterID]; ok && existing.Status == models.StatusPending {
		return sentinel.ErrAlreadyPending
	}

	clone := *record
	clone.Status = models.StatusPending
	s.records[record.RequesterID] = &clone
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, requesterID string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[requesterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*models.Record
	for _, record := range s.records {
		if record.Status == models.StatusPending {
			clone := *record
			pending = append(pending, &clone)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SubmittedAt.Before(pending[j].SubmittedAt)
	})
	return pending, nil
}

func (s *InMemoryStore) Decide(_ context.Context, requesterID string, status models.Status, decidedBy, reason string, decidedAt time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[requesterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if record.Status != models.StatusPending {
		return nil, sentinel.ErrAlreadyDecided
	}

	record.Status = status
	record.DecidedBy = decidedBy
	record.DecisionReason = reason
	record.DecidedAt = &decidedAt

	clone := *record
	return &clone, nil
}
