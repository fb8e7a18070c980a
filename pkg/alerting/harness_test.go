package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/config"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/roster"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/store"
)

// recorderSink captures emitted signals for assertions
type recorderSink struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *recorderSink) Notify(ctx context.Context, signal Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, signal)
	return nil
}

func (r *recorderSink) ofKind(kind SignalKind) []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Signal
	for _, s := range r.signals {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// fakeClock drives the scheduler deterministically in tests. Advance moves
// simulated time forward and fires due timers in order, including timers
// scheduled by earlier fires (re-armed escalation chains).
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	due     time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Start(d time.Duration, fn func()) timerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, due: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.due.After(target) {
				continue
			}
			if next == nil || t.due.Before(next.due) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.due.After(c.now) {
			c.now = next.due
		}
		next.fired = true
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

// testResponder builds an on-duty roster entry with an open shift window
func testResponder(id string, role models.ResponderRole, load int) models.Responder {
	return models.Responder{ID: id, Role: role, OnDuty: true, Load: load}
}

type harness struct {
	service   *AlertService
	scheduler *EscalationScheduler
	store     *store.MemoryStore
	roster    *roster.StaticRoster
	sink      *recorderSink
	clock     *fakeClock
}

// newHarness wires a full alerting core over an in-memory store and fake
// clock. withScheduler=false leaves timers unwired for tests that only care
// about the state machine.
func newHarness(responders []models.Responder, withScheduler bool) *harness {
	policy := config.PolicyConfig{}
	clock := newFakeClock()
	memStore := store.NewMemoryStore()
	staffRoster := roster.NewStaticRoster(responders)
	sink := &recorderSink{}
	calc := NewPriorityCalculator(policy)
	engine := NewAssignmentEngine(staffRoster, policy)
	engine.now = clock.Now

	service := NewAlertService(memStore, engine, calc, sink, staffRoster, policy)
	service.now = clock.Now

	h := &harness{
		service: service,
		store:   memStore,
		roster:  staffRoster,
		sink:    sink,
		clock:   clock,
	}
	if withScheduler {
		h.scheduler = NewEscalationScheduler(service, memStore, calc, sink, policy)
		h.scheduler.now = clock.Now
		h.scheduler.startTimer = clock.Start
		service.SetScheduler(h.scheduler)
	}
	return h
}

func validCreateRequest(room string) *models.CreateAlertRequest {
	return &models.CreateAlertRequest{
		Type:         models.AlertTypeMedicalEmergency,
		UrgencyLevel: 2,
		Room:         room,
		Description:  "patient reporting severe chest pain",
	}
}
