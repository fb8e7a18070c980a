package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/config"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/store"
)

// timerHandle abstracts *time.Timer so tests can drive simulated time
type timerHandle interface {
	Stop() bool
}

type escalationTimer struct {
	alertID   string
	dueAt     time.Time
	nextTier  int
	fireTimer timerHandle
	warnTimer timerHandle
}

// EscalationScheduler maintains exactly one pending timer per non-terminal
// alert and promotes unacknowledged alerts through successive tiers. Timers
// live only in memory; Recover rebuilds them from persisted alert state.
type EscalationScheduler struct {
	service *AlertService
	store   store.AlertStore
	calc    *PriorityCalculator
	sink    NotificationSink

	maxTier       int
	warningLead   time.Duration
	retryAttempts int
	retryBackoff  time.Duration

	mu     sync.Mutex
	timers map[string]*escalationTimer

	// Injectable for tests
	now        func() time.Time
	startTimer func(d time.Duration, fn func()) timerHandle
}

// NewEscalationScheduler creates the scheduler. Wire it into the lifecycle
// with AlertService.SetScheduler before use.
func NewEscalationScheduler(service *AlertService, s store.AlertStore, calc *PriorityCalculator, sink NotificationSink, policy config.PolicyConfig) *EscalationScheduler {
	maxTier := policy.MaxEscalationTier
	if maxTier <= 0 {
		maxTier = 3
	}
	lead := time.Duration(policy.WarningLeadSeconds) * time.Second
	if policy.WarningLeadSeconds == 0 {
		lead = 2 * time.Minute
	}
	attempts := policy.EscalateRetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := time.Duration(policy.EscalateRetryBackoffMS) * time.Millisecond
	if policy.EscalateRetryBackoffMS <= 0 {
		backoff = 100 * time.Millisecond
	}

	return &EscalationScheduler{
		service:       service,
		store:         s,
		calc:          calc,
		sink:          sink,
		maxTier:       maxTier,
		warningLead:   lead,
		retryAttempts: attempts,
		retryBackoff:  backoff,
		timers:        make(map[string]*escalationTimer),
		now:           time.Now,
		startTimer: func(d time.Duration, fn func()) timerHandle {
			return time.AfterFunc(d, fn)
		},
	}
}

// Arm schedules (or replaces) the escalation timer for an alert using the
// policy interval for its urgency and priority
func (es *EscalationScheduler) Arm(alert *models.Alert) {
	interval := es.calc.EscalationInterval(alert.UrgencyLevel, alert.Priority)
	es.armAfter(alert, interval)
}

// armAfter schedules the timer to fire after the given delay, replacing any
// existing timer for the alert (cancel-then-set, never duplicated)
func (es *EscalationScheduler) armAfter(alert *models.Alert, delay time.Duration) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if existing, ok := es.timers[alert.ID]; ok {
		existing.stop()
	}

	alertID := alert.ID
	due := es.now().Add(delay)
	entry := &escalationTimer{
		alertID:  alertID,
		dueAt:    due,
		nextTier: alert.EscalationTier + 1,
	}

	entry.fireTimer = es.startTimer(delay, func() {
		es.onFire(alertID, due)
	})

	if warnDelay := delay - es.warningLead; warnDelay > 0 {
		entry.warnTimer = es.startTimer(warnDelay, func() {
			es.onWarning(alertID, due)
		})
	}

	es.timers[alertID] = entry
	logrus.Debugf("Armed escalation timer for alert %s: tier %d due in %s", alertID, entry.nextTier, delay)
}

// Cancel removes the alert's timer; safe to call when none exists
func (es *EscalationScheduler) Cancel(alertID string) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if entry, ok := es.timers[alertID]; ok {
		entry.stop()
		delete(es.timers, alertID)
		logrus.Debugf("Canceled escalation timer for alert %s", alertID)
	}
}

// onWarning emits a best-effort countdown signal ahead of the escalation
func (es *EscalationScheduler) onWarning(alertID string, due time.Time) {
	es.mu.Lock()
	entry, ok := es.timers[alertID]
	es.mu.Unlock()
	if !ok || !entry.dueAt.Equal(due) {
		return // replaced or canceled since scheduling
	}

	remaining := due.Sub(es.now())
	if remaining < 0 {
		remaining = 0
	}
	if es.sink == nil {
		return
	}
	err := es.sink.Notify(context.Background(), Signal{
		Kind:             SignalEscalationWarning,
		AlertID:          alertID,
		At:               es.now(),
		Tier:             entry.nextTier,
		RemainingSeconds: remaining.Seconds(),
	})
	if err != nil {
		logrus.Warnf("Failed to deliver escalation warning for alert %s: %v", alertID, err)
	}
}

// onFire escalates through the lifecycle's timer entry point, which
// re-reads the alert inside its per-alert critical section: an
// acknowledgment or resolution landing while this callback is in flight
// wins, and the stale escalation is dropped. Transient store conflicts
// retry with bounded backoff.
func (es *EscalationScheduler) onFire(alertID string, due time.Time) {
	es.mu.Lock()
	entry, ok := es.timers[alertID]
	if !ok || !entry.dueAt.Equal(due) {
		// Canceled or replaced while this callback was in flight
		es.mu.Unlock()
		return
	}
	delete(es.timers, alertID)
	es.mu.Unlock()

	ctx := context.Background()
	for attempt := 1; attempt <= es.retryAttempts; attempt++ {
		escalated, err := es.service.escalateIfUnacknowledged(ctx, alertID, "response timeout")
		if err == nil {
			if !escalated {
				logrus.Debugf("Dropping escalation for alert %s: no longer eligible", alertID)
			}
			return
		}

		logrus.Errorf("Escalation attempt %d failed for alert %s: %v", attempt, alertID, err)
		time.Sleep(es.retryBackoff)
	}

	// A persistent failure is fatal for this alert only; other timers keep running
	logrus.Errorf("Giving up escalating alert %s after %d attempts; operator intervention required", alertID, es.retryAttempts)
}

// Recover rebuilds timers from persisted alert state after a restart. Alerts
// already past their due time escalate immediately.
func (es *EscalationScheduler) Recover(ctx context.Context) error {
	alerts, err := es.store.Query(ctx, store.Filter{
		Statuses: []models.AlertStatus{models.AlertStatusPending, models.AlertStatusAssigned},
	})
	if err != nil {
		return err
	}

	now := es.now()
	recovered, overdue := 0, 0
	for _, alert := range alerts {
		if alert.EscalationTier >= es.maxTier {
			continue
		}

		interval := es.calc.EscalationInterval(alert.UrgencyLevel, alert.Priority)
		anchor := alert.LastTierChange
		if anchor.IsZero() {
			anchor = alert.CreatedAt
		}
		due := anchor.Add(interval)

		if remaining := due.Sub(now); remaining > 0 {
			es.armAfter(alert, remaining)
			recovered++
		} else {
			// Overdue: fire through a zero-delay timer so recovery itself
			// never blocks on store writes
			es.armAfter(alert, 0)
			overdue++
		}
	}

	logrus.Infof("Escalation recovery complete: %d timers re-armed, %d overdue alerts escalating", recovered, overdue)
	return nil
}

// ActiveTimers returns the number of pending escalation timers
func (es *EscalationScheduler) ActiveTimers() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.timers)
}

// Stop cancels every pending timer
func (es *EscalationScheduler) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	for _, entry := range es.timers {
		entry.stop()
	}
	es.timers = make(map[string]*escalationTimer)
	logrus.Info("Escalation scheduler stopped")
}

func (t *escalationTimer) stop() {
	if t.fireTimer != nil {
		t.fireTimer.Stop()
	}
	if t.warnTimer != nil {
		t.warnTimer.Stop()
	}
}
