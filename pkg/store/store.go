package store

import (
	"context"
	"errors"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

var (
	// ErrNotFound is returned when no alert exists for the given id
	ErrNotFound = errors.New("alert not found")

	// ErrVersionConflict is returned when an optimistic-concurrency write
	// lost against a concurrent update. The caller re-reads and decides
	// whether to retry or drop its change.
	ErrVersionConflict = errors.New("alert version conflict")
)

// Filter narrows a Query call. Zero-value fields are ignored.
type Filter struct {
	Statuses   []models.AlertStatus
	Room       string
	Type       models.AlertType
	MinTier    int  // matches escalationTier >= MinTier when > 0
	ActiveOnly bool // excludes resolved alerts
}

// AlertStore is the durable storage port for alert records. Save performs an
// optimistic-concurrency write: the alert's Version must match the stored one
// (0 for a new record) and is incremented on success.
type AlertStore interface {
	Save(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, id string) (*models.Alert, error)
	FindActiveByLocation(ctx context.Context, room string) ([]*models.Alert, error)
	Query(ctx context.Context, filter Filter) ([]*models.Alert, error)
}

func matchesFilter(a *models.Alert, f Filter) bool {
	if f.ActiveOnly && a.Status == models.AlertStatusResolved {
		return false
	}
	if f.Room != "" && a.Room != f.Room {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.MinTier > 0 && a.EscalationTier < f.MinTier {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if a.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
