package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

func sampleAlert(id, room string, createdAt time.Time) *models.Alert {
	return &models.Alert{
		ID:           id,
		Type:         models.AlertTypeMedicalEmergency,
		UrgencyLevel: 2,
		Priority:     5.6,
		Room:         room,
		Description:  "patient reporting severe chest pain",
		Status:       models.AlertStatusPending,
		CreatedAt:    createdAt,
	}
}

func TestMemoryStoreSaveAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	alert := sampleAlert("a1", "E101", time.Now())
	require.NoError(t, s.Save(ctx, alert))
	assert.Equal(t, int64(1), alert.Version)

	found, err := s.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "E101", found.Room)
	assert.Equal(t, int64(1), found.Version)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	alert := sampleAlert("a1", "E101", time.Now())
	require.NoError(t, s.Save(ctx, alert))

	// Two readers pick up version 1
	first, err := s.FindByID(ctx, "a1")
	require.NoError(t, err)
	second, err := s.FindByID(ctx, "a1")
	require.NoError(t, err)

	// First write wins, second is stale
	first.Status = models.AlertStatusAssigned
	require.NoError(t, s.Save(ctx, first))

	second.Status = models.AlertStatusAcknowledged
	assert.ErrorIs(t, s.Save(ctx, second), ErrVersionConflict)

	stored, err := s.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusAssigned, stored.Status)
}

func TestMemoryStoreInsertWithNonZeroVersionRejected(t *testing.T) {
	s := NewMemoryStore()

	alert := sampleAlert("a1", "E101", time.Now())
	alert.Version = 3
	assert.ErrorIs(t, s.Save(context.Background(), alert), ErrVersionConflict)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	alert := sampleAlert("a1", "E101", time.Now())
	alert.AssignedTo = []string{"nurse-1"}
	require.NoError(t, s.Save(ctx, alert))

	found, err := s.FindByID(ctx, "a1")
	require.NoError(t, err)
	found.Room = "mutated"
	found.AssignedTo[0] = "mutated"

	fresh, err := s.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "E101", fresh.Room)
	assert.Equal(t, []string{"nurse-1"}, fresh.AssignedTo)
}

func TestMemoryStoreFindActiveByLocation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	active := sampleAlert("a1", "E101", now)
	require.NoError(t, s.Save(ctx, active))

	resolved := sampleAlert("a2", "E101", now.Add(time.Minute))
	resolved.Status = models.AlertStatusResolved
	require.NoError(t, s.Save(ctx, resolved))

	other := sampleAlert("a3", "E102", now.Add(2*time.Minute))
	require.NoError(t, s.Save(ctx, other))

	alerts, err := s.FindActiveByLocation(ctx, "E101")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "a1", alerts[0].ID)
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	pending := sampleAlert("a1", "E101", now)
	require.NoError(t, s.Save(ctx, pending))

	escalated := sampleAlert("a2", "E102", now.Add(time.Minute))
	escalated.Status = models.AlertStatusAssigned
	escalated.EscalationTier = 2
	require.NoError(t, s.Save(ctx, escalated))

	fire := sampleAlert("a3", "E103", now.Add(2*time.Minute))
	fire.Type = models.AlertTypeFire
	require.NoError(t, s.Save(ctx, fire))

	byStatus, err := s.Query(ctx, Filter{Statuses: []models.AlertStatus{models.AlertStatusAssigned}})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "a2", byStatus[0].ID)

	byTier, err := s.Query(ctx, Filter{MinTier: 1})
	require.NoError(t, err)
	require.Len(t, byTier, 1)
	assert.Equal(t, "a2", byTier[0].ID)

	byType, err := s.Query(ctx, Filter{Type: models.AlertTypeFire})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "a3", byType[0].ID)

	all, err := s.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Oldest first
	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{all[0].ID, all[1].ID, all[2].ID})
}
