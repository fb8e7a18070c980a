package roster

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

// Roster is the read-mostly port over the staff directory. The core reads
// eligibility data and signals load deltas; ownership of the underlying user
// records stays with the authorization collaborator.
type Roster interface {
	// ListOnDuty returns a snapshot of all on-duty responders with their
	// current load populated.
	ListOnDuty(ctx context.Context) ([]*models.Responder, error)

	// FindByID returns a snapshot of one responder, or nil if unknown.
	FindByID(ctx context.Context, responderID string) (*models.Responder, error)

	// AdjustLoad atomically applies a load delta for a responder. Unknown
	// ids are ignored; the load never goes below zero.
	AdjustLoad(responderID string, delta int)
}

type entry struct {
	responder models.Responder
	load      atomic.Int64
}

// StaticRoster is an in-process Roster seeded at startup. Load counters are
// atomic because assignments for different alerts race on them.
type StaticRoster struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Ensure StaticRoster implements Roster
var _ Roster = (*StaticRoster)(nil)

// NewStaticRoster builds a roster from a fixed set of responders
func NewStaticRoster(responders []models.Responder) *StaticRoster {
	r := &StaticRoster{entries: make(map[string]*entry, len(responders))}
	for _, responder := range responders {
		e := &entry{responder: responder}
		e.load.Store(int64(responder.Load))
		r.entries[responder.ID] = e
	}
	return r
}

// ListOnDuty returns all on-duty responders sorted by id
func (r *StaticRoster) ListOnDuty(ctx context.Context) ([]*models.Responder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	responders := make([]*models.Responder, 0, len(r.entries))
	for _, e := range r.entries {
		if !e.responder.OnDuty {
			continue
		}
		responders = append(responders, e.snapshot())
	}

	sort.Slice(responders, func(i, j int) bool {
		return responders[i].ID < responders[j].ID
	})
	return responders, nil
}

// FindByID returns a snapshot of the responder, or nil if unknown
func (r *StaticRoster) FindByID(ctx context.Context, responderID string) (*models.Responder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[responderID]
	if !ok {
		return nil, nil
	}
	return e.snapshot(), nil
}

// AdjustLoad applies a load delta atomically
func (r *StaticRoster) AdjustLoad(responderID string, delta int) {
	r.mu.RLock()
	e, ok := r.entries[responderID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	for {
		current := e.load.Load()
		next := current + int64(delta)
		if next < 0 {
			next = 0
		}
		if e.load.CompareAndSwap(current, next) {
			return
		}
	}
}

// SetOnDuty flips a responder's duty flag (shift changes)
func (r *StaticRoster) SetOnDuty(responderID string, onDuty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[responderID]; ok {
		e.responder.OnDuty = onDuty
	}
}

func (e *entry) snapshot() *models.Responder {
	snap := e.responder
	snap.Load = int(e.load.Load())
	return &snap
}
