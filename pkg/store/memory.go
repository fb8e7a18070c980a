package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

// MemoryStore is an in-process AlertStore with the same optimistic
// concurrency semantics as the durable stores. Used for tests and for
// running the service without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts map[string]*models.Alert
}

// Ensure MemoryStore implements AlertStore
var _ AlertStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory alert store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts: make(map[string]*models.Alert),
	}
}

// Save inserts or updates an alert, rejecting stale versions
func (s *MemoryStore) Save(ctx context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.alerts[alert.ID]
	if !ok {
		if alert.Version != 0 {
			return ErrVersionConflict
		}
	} else if existing.Version != alert.Version {
		return ErrVersionConflict
	}

	alert.Version++
	s.alerts[alert.ID] = alert.Clone()
	return nil
}

// FindByID returns a copy of the alert with the given id
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return alert.Clone(), nil
}

// FindActiveByLocation returns all non-resolved alerts for a room
func (s *MemoryStore) FindActiveByLocation(ctx context.Context, room string) ([]*models.Alert, error) {
	return s.Query(ctx, Filter{Room: room, ActiveOnly: true})
}

// Query returns copies of all alerts matching the filter, oldest first
func (s *MemoryStore) Query(ctx context.Context, filter Filter) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*models.Alert, 0)
	for _, alert := range s.alerts {
		if matchesFilter(alert, filter) {
			matches = append(matches, alert.Clone())
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}
