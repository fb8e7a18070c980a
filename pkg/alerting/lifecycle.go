package alerting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/config"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/roster"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/store"
)

// timerControl is the slice of the escalation scheduler the lifecycle needs.
// The scheduler calls back into the lifecycle on expiry, so the two are wired
// after construction.
type timerControl interface {
	Arm(alert *models.Alert)
	Cancel(alertID string)
}

// AlertService is the state machine governing an alert from creation through
// acknowledgment and resolution. All mutating operations on one alert are
// serialized through a per-alert mutex so timer fires and API calls cannot
// interleave on the same record.
type AlertService struct {
	store  store.AlertStore
	engine *AssignmentEngine
	calc   *PriorityCalculator
	sink   NotificationSink
	roster roster.Roster
	policy config.PolicyConfig

	scheduler timerControl

	alertLocks keyedMutex
	roomLocks  keyedMutex

	now func() time.Time
}

// keyedMutex hands out one mutex per key, created on first use
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	k.mu.Lock()
	mu, ok := k.locks[key]
	if !ok {
		if k.locks == nil {
			k.locks = make(map[string]*sync.Mutex)
		}
		mu = &sync.Mutex{}
		k.locks[key] = mu
	}
	k.mu.Unlock()

	mu.Lock()
	return mu
}

// NewAlertService creates the alert lifecycle service
func NewAlertService(s store.AlertStore, engine *AssignmentEngine, calc *PriorityCalculator, sink NotificationSink, r roster.Roster, policy config.PolicyConfig) *AlertService {
	if policy.MaxEscalationTier <= 0 {
		policy.MaxEscalationTier = 3
	}
	if policy.AutoAssignThreshold == 0 {
		policy.AutoAssignThreshold = 8
	}
	if policy.MinDescriptionLength <= 0 {
		policy.MinDescriptionLength = 10
	}
	if policy.MinOutcomeLength <= 0 {
		policy.MinOutcomeLength = 10
	}
	return &AlertService{
		store:  s,
		engine: engine,
		calc:   calc,
		sink:   sink,
		roster: r,
		policy: policy,
		now:    time.Now,
	}
}

// SetScheduler wires the escalation scheduler after construction
func (s *AlertService) SetScheduler(scheduler timerControl) {
	s.scheduler = scheduler
}

// lockAlert acquires the per-alert mutex, creating it on first use
func (s *AlertService) lockAlert(alertID string) *sync.Mutex {
	return s.alertLocks.lock(alertID)
}

// CreateAlert validates the request, rejects duplicate active alerts for the
// same room, computes priority, auto-assigns high-priority alerts and arms
// the first escalation timer.
func (s *AlertService) CreateAlert(ctx context.Context, req *models.CreateAlertRequest) (*models.Alert, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	// Room-scoped serialization so two concurrent creates for the same room
	// cannot both pass the duplicate check
	roomMu := s.roomLocks.lock(req.Room)
	defer roomMu.Unlock()

	active, err := s.store.FindActiveByLocation(ctx, req.Room)
	if err != nil {
		return nil, fmt.Errorf("failed to check active alerts for room %s: %w", req.Room, err)
	}
	if len(active) > 0 {
		return nil, NewError(KindDuplicateActiveAlert,
			"Active alert already exists for room %s", req.Room)
	}

	now := s.now()
	alert := &models.Alert{
		ID:             uuid.New().String(),
		Type:           req.Type,
		UrgencyLevel:   req.UrgencyLevel,
		Priority:       s.calc.Priority(req.Type, req.UrgencyLevel),
		Room:           req.Room,
		Department:     req.Department,
		PatientID:      req.PatientID,
		Description:    req.Description,
		Status:         models.AlertStatusPending,
		CreatedAt:      now,
		LastTierChange: now,
		Metadata:       req.Metadata,
	}
	alert.AppendTimeline("created", "", string(req.Type), now)

	if err := s.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}
	logrus.Infof("Created alert %s: type=%s urgency=%d priority=%.1f room=%s",
		alert.ID, alert.Type, alert.UrgencyLevel, alert.Priority, alert.Room)

	if alert.Priority >= s.policy.AutoAssignThreshold {
		s.autoAssign(ctx, alert)
	}

	if s.scheduler != nil {
		s.scheduler.Arm(alert)
	}
	return alert, nil
}

func (s *AlertService) validateCreate(req *models.CreateAlertRequest) error {
	if req.Room == "" {
		return NewError(KindValidation, "room/location is required")
	}
	if req.Type == "" {
		return NewError(KindValidation, "alert type is required")
	}
	if req.UrgencyLevel < 1 || req.UrgencyLevel > 5 {
		return NewError(KindValidation, "urgency level must be between 1 and 5, got %d", req.UrgencyLevel)
	}
	if len(strings.TrimSpace(req.Description)) < s.policy.MinDescriptionLength {
		return NewError(KindValidation, "description must be at least %d characters", s.policy.MinDescriptionLength)
	}
	return nil
}

// autoAssign runs the assignment engine; failure is soft and leaves the alert
// pending while supervisors are notified
func (s *AlertService) autoAssign(ctx context.Context, alert *models.Alert) {
	assignees, err := s.engine.AutoAssign(ctx, alert)
	if err != nil {
		logrus.Warnf("Auto-assignment failed for alert %s: %v", alert.ID, err)
		s.notify(ctx, Signal{
			Kind:    SignalAssignmentFailed,
			AlertID: alert.ID,
			Room:    alert.Room,
			At:      s.now(),
			Roles:   []models.ResponderRole{models.RoleHeadNurse, models.RoleAdmin},
			Message: "no available staff",
		})
		return
	}

	alert.Status = models.AlertStatusAssigned
	alert.AssignedTo = assignees
	alert.AppendTimeline("assigned", "", strings.Join(assignees, ","), s.now())

	if err := s.store.Save(ctx, alert); err != nil {
		// Keep the responder load consistent with what got persisted
		s.engine.ReleaseLoad(assignees)
		logrus.Errorf("Failed to persist assignment for alert %s: %v", alert.ID, err)
		return
	}

	s.notify(ctx, Signal{
		Kind:    SignalAssigned,
		AlertID: alert.ID,
		Room:    alert.Room,
		At:      s.now(),
		UserIDs: assignees,
		Message: fmt.Sprintf("%s alert in room %s", alert.Type, alert.Room),
	})
}

// AcknowledgeAlert marks the alert acknowledged by a responder, records the
// response time, cancels the escalation timer and raises an SLA breach signal
// when the target was missed.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, alertID, userID, notes string) (*models.Alert, error) {
	if userID == "" {
		return nil, NewError(KindValidation, "user id is required")
	}

	mu := s.lockAlert(alertID)
	defer mu.Unlock()

	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	switch alert.Status {
	case models.AlertStatusAcknowledged, models.AlertStatusResolved:
		return nil, NewError(KindInvalidTransition, "Alert %s is already acknowledged", alertID)
	}

	if err := s.checkAcknowledger(ctx, alert, userID); err != nil {
		return nil, err
	}

	now := s.now()
	implicitSelfAssign := !alert.IsAssignedTo(userID)
	if implicitSelfAssign {
		alert.AssignedTo = append(alert.AssignedTo, userID)
		s.engine.ClaimLoad([]string{userID})
	}

	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = userID
	alert.ResponseTimeSeconds = now.Sub(alert.CreatedAt).Seconds()
	alert.AppendTimeline("acknowledged", userID, notes, now)

	if err := s.store.Save(ctx, alert); err != nil {
		if implicitSelfAssign {
			s.engine.ReleaseLoad([]string{userID})
		}
		return nil, fmt.Errorf("failed to persist acknowledgment: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.Cancel(alertID)
	}

	responseTime := now.Sub(alert.CreatedAt)
	slaTarget := s.calc.SLA(alert.Priority)
	if responseTime > slaTarget {
		s.notify(ctx, Signal{
			Kind:    SignalSLABreach,
			AlertID: alert.ID,
			Room:    alert.Room,
			At:      now,
			Breach:  responseTime - slaTarget,
			Message: fmt.Sprintf("acknowledged %.0fs past the %s target", (responseTime - slaTarget).Seconds(), slaTarget),
		})
	}

	logrus.Infof("Alert %s acknowledged by %s after %.0fs", alertID, userID, responseTime.Seconds())
	return alert, nil
}

// checkAcknowledger enforces who may acknowledge: an assignee always may; any
// responder whose role is in the current tier's notified set may once the
// alert has escalated or is still unassigned.
func (s *AlertService) checkAcknowledger(ctx context.Context, alert *models.Alert, userID string) error {
	if alert.IsAssignedTo(userID) {
		return nil
	}

	if alert.EscalationTier == 0 && len(alert.AssignedTo) > 0 {
		return NewError(KindNotAssigned, "Responder %s is not assigned to alert %s", userID, alert.ID)
	}

	responder, err := s.roster.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up responder %s: %w", userID, err)
	}
	if responder == nil || !roleInSet(responder.Role, RolesForTier(alert.EscalationTier)) {
		return NewError(KindNotAssigned,
			"Responder %s is not assigned to alert %s and is not in the tier %d role set",
			userID, alert.ID, alert.EscalationTier)
	}
	return nil
}

// BulkAcknowledge acknowledges each alert independently and aggregates
// per-item results; the batch is never one transaction.
func (s *AlertService) BulkAcknowledge(ctx context.Context, req *models.BulkAcknowledgeRequest) []models.BulkAcknowledgeResult {
	results := make([]models.BulkAcknowledgeResult, 0, len(req.AlertIDs))
	for _, alertID := range req.AlertIDs {
		result := models.BulkAcknowledgeResult{AlertID: alertID, OK: true}
		if _, err := s.AcknowledgeAlert(ctx, alertID, req.UserID, req.Notes); err != nil {
			result.OK = false
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// ResolveAlert closes out an acknowledged alert, records the resolution and
// total handling time, releases assignee load and creates a linked follow-up
// alert when requested.
func (s *AlertService) ResolveAlert(ctx context.Context, alertID, userID string, resolution models.Resolution) (*models.Alert, error) {
	if userID == "" {
		return nil, NewError(KindValidation, "user id is required")
	}
	if len(strings.TrimSpace(resolution.Outcome)) < s.policy.MinOutcomeLength {
		return nil, NewError(KindValidation, "resolution outcome must be at least %d characters", s.policy.MinOutcomeLength)
	}
	if len(resolution.Actions) == 0 {
		return nil, NewError(KindValidation, "at least one resolution action is required")
	}

	mu := s.lockAlert(alertID)
	defer mu.Unlock()

	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusResolved {
		return nil, NewError(KindInvalidTransition, "Alert %s is already resolved", alertID)
	}
	if alert.AcknowledgedAt == nil {
		return nil, NewError(KindInvalidTransition, "Alert %s must be acknowledged before resolution", alertID)
	}

	now := s.now()
	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.Resolution = &resolution
	alert.HandlingTimeSeconds = now.Sub(alert.CreatedAt).Seconds()
	alert.AppendTimeline("resolved", userID, resolution.Outcome, now)

	if err := s.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist resolution: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.Cancel(alertID)
	}
	s.engine.ReleaseLoad(alert.AssignedTo)

	s.notify(ctx, Signal{
		Kind:    SignalResolved,
		AlertID: alert.ID,
		Room:    alert.Room,
		At:      now,
		UserIDs: alert.AssignedTo,
		Message: resolution.Outcome,
	})
	logrus.Infof("Alert %s resolved by %s after %.0fs", alertID, userID, alert.HandlingTimeSeconds)

	if resolution.FollowUpRequired {
		s.createFollowUp(ctx, alert)
	}
	return alert, nil
}

// createFollowUp raises a routine-urgency linked alert for the same room.
// The original is already resolved, so the duplicate-room guard passes.
func (s *AlertService) createFollowUp(ctx context.Context, original *models.Alert) {
	req := &models.CreateAlertRequest{
		Type:         original.Type,
		UrgencyLevel: 3,
		Room:         original.Room,
		Department:   original.Department,
		PatientID:    original.PatientID,
		Description:  fmt.Sprintf("Follow-up required for alert %s: %s", original.ID, original.Resolution.Outcome),
		Metadata: map[string]string{
			"isFollowUp":      "true",
			"originalAlertId": original.ID,
		},
	}

	followUp, err := s.CreateAlert(ctx, req)
	if err != nil {
		logrus.Errorf("Failed to create follow-up for alert %s: %v", original.ID, err)
		return
	}
	logrus.Infof("Created follow-up alert %s for resolved alert %s", followUp.ID, original.ID)
}

// EscalateAlert promotes the alert to the next tier on a manual request.
// Acknowledged alerts may still be escalated this way; only resolution and
// the tier ceiling block it.
func (s *AlertService) EscalateAlert(ctx context.Context, alertID, reason string) (*models.Alert, error) {
	mu := s.lockAlert(alertID)
	defer mu.Unlock()

	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusResolved {
		return nil, NewError(KindInvalidTransition, "Cannot escalate resolved alert %s", alertID)
	}
	if alert.EscalationTier >= s.policy.MaxEscalationTier {
		return nil, NewError(KindInvalidTransition,
			"Alert %s already at maximum escalation tier %d", alertID, s.policy.MaxEscalationTier)
	}

	if err := s.escalate(ctx, alert, reason); err != nil {
		return nil, err
	}
	return alert, nil
}

// escalateIfUnacknowledged is the scheduler's timer-expiry entry point.
// Unlike manual escalation, the acknowledgment check happens inside the
// per-alert critical section: an acknowledgment that lands after the timer
// fired but before this call takes the lock freezes the tier, and the stale
// escalation is dropped. Returns false when dropped.
func (s *AlertService) escalateIfUnacknowledged(ctx context.Context, alertID, reason string) (bool, error) {
	mu := s.lockAlert(alertID)
	defer mu.Unlock()

	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return false, nil
		}
		return false, err
	}

	if alert.AcknowledgedAt != nil || alert.IsTerminal() {
		logrus.Debugf("Dropping escalation for alert %s: status %s", alertID, alert.Status)
		return false, nil
	}
	if alert.EscalationTier >= s.policy.MaxEscalationTier {
		return false, nil
	}

	if err := s.escalate(ctx, alert, reason); err != nil {
		return false, err
	}
	return true, nil
}

// escalate applies the tier bump, appends to the escalation history and
// notifies the widened role set. Callers hold the per-alert lock.
func (s *AlertService) escalate(ctx context.Context, alert *models.Alert, reason string) error {
	now := s.now()
	alert.EscalationTier++
	alert.LastTierChange = now
	alert.EscalationHistory = append(alert.EscalationHistory, models.EscalationRecord{
		Tier:      alert.EscalationTier,
		Timestamp: now,
		Reason:    reason,
	})
	alert.AppendTimeline("escalated", "", fmt.Sprintf("tier %d: %s", alert.EscalationTier, reason), now)

	if err := s.store.Save(ctx, alert); err != nil {
		return fmt.Errorf("failed to persist escalation: %w", err)
	}

	roles := RolesForTier(alert.EscalationTier)
	s.notify(ctx, Signal{
		Kind:    SignalEscalated,
		AlertID: alert.ID,
		Room:    alert.Room,
		At:      now,
		Tier:    alert.EscalationTier,
		Roles:   roles,
		UserIDs: s.onDutyUserIDs(ctx, roles),
		Message: reason,
	})
	logrus.Warnf("Alert %s escalated to tier %d: %s", alert.ID, alert.EscalationTier, reason)

	// Re-arm for the next tier unless the ceiling was reached or the alert
	// is no longer waiting on acknowledgment
	if s.scheduler != nil && alert.EscalationTier < s.policy.MaxEscalationTier && !alert.IsTerminal() && alert.AcknowledgedAt == nil {
		s.scheduler.Arm(alert)
	}
	return nil
}

// DeEscalateAlert lowers the tier by one and restarts the timer at the
// now-current tier's interval
func (s *AlertService) DeEscalateAlert(ctx context.Context, alertID, reason string) (*models.Alert, error) {
	mu := s.lockAlert(alertID)
	defer mu.Unlock()

	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.EscalationTier == 0 {
		return nil, NewError(KindInvalidTransition, "Alert %s has not been escalated", alertID)
	}

	now := s.now()
	alert.EscalationTier--
	alert.LastTierChange = now
	alert.EscalationHistory = append(alert.EscalationHistory, models.EscalationRecord{
		Tier:      alert.EscalationTier,
		Timestamp: now,
		Reason:    reason,
	})
	alert.AppendTimeline("de_escalated", "", fmt.Sprintf("tier %d: %s", alert.EscalationTier, reason), now)

	if err := s.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist de-escalation: %w", err)
	}

	s.notify(ctx, Signal{
		Kind:    SignalDeEscalated,
		AlertID: alert.ID,
		Room:    alert.Room,
		At:      now,
		Tier:    alert.EscalationTier,
		Message: reason,
	})
	logrus.Infof("Alert %s de-escalated to tier %d: %s", alertID, alert.EscalationTier, reason)

	if s.scheduler != nil && alert.AcknowledgedAt == nil && !alert.IsTerminal() {
		s.scheduler.Arm(alert)
	}
	return alert, nil
}

// AssignAlert manually assigns responders to a pending alert after
// re-validating their eligibility
func (s *AlertService) AssignAlert(ctx context.Context, alertID string, responderIDs []string) (*models.Alert, error) {
	mu := s.lockAlert(alertID)
	defer mu.Unlock()

	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status != models.AlertStatusPending {
		return nil, NewError(KindInvalidAssignment, "Alert %s is %s; manual assignment requires pending status", alertID, alert.Status)
	}

	valid, err := s.engine.ValidateManual(ctx, alert, responderIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	alert.Status = models.AlertStatusAssigned
	alert.AssignedTo = valid
	alert.AppendTimeline("assigned", "", strings.Join(valid, ","), now)

	if err := s.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist assignment: %w", err)
	}
	s.engine.ClaimLoad(valid)

	s.notify(ctx, Signal{
		Kind:    SignalAssigned,
		AlertID: alert.ID,
		Room:    alert.Room,
		At:      now,
		UserIDs: valid,
		Message: fmt.Sprintf("%s alert in room %s", alert.Type, alert.Room),
	})
	return alert, nil
}

// ReassignAlert swaps the assignee set on a non-resolved alert, adjusting
// load on removed and added responders within the alert's lock
func (s *AlertService) ReassignAlert(ctx context.Context, alertID string, responderIDs []string) (*models.Alert, error) {
	mu := s.lockAlert(alertID)
	defer mu.Unlock()

	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusResolved {
		return nil, NewError(KindInvalidAssignment, "Alert %s is resolved and cannot be reassigned", alertID)
	}

	valid, err := s.engine.ValidateManual(ctx, alert, responderIDs)
	if err != nil {
		return nil, err
	}

	previous := alert.AssignedTo
	now := s.now()
	if alert.Status == models.AlertStatusPending {
		alert.Status = models.AlertStatusAssigned
	}
	alert.AssignedTo = valid
	alert.AppendTimeline("reassigned", "", strings.Join(valid, ","), now)

	if err := s.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist reassignment: %w", err)
	}

	s.engine.ReleaseLoad(previous)
	s.engine.ClaimLoad(valid)

	s.notify(ctx, Signal{
		Kind:    SignalAssigned,
		AlertID: alert.ID,
		Room:    alert.Room,
		At:      now,
		UserIDs: valid,
		Message: fmt.Sprintf("reassigned %s alert in room %s", alert.Type, alert.Room),
	})
	return alert, nil
}

// GetAlert returns the alert with the given id
func (s *AlertService) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	return s.getAlert(ctx, alertID)
}

// GetAlerts returns alerts matching the filter
func (s *AlertService) GetAlerts(ctx context.Context, filter store.Filter) ([]*models.Alert, error) {
	return s.store.Query(ctx, filter)
}

// GetEscalationChain returns the alert's escalation history annotated with
// the role set notified at each tier
func (s *AlertService) GetEscalationChain(ctx context.Context, alertID string) ([]models.EscalationChainEntry, error) {
	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	chain := make([]models.EscalationChainEntry, 0, len(alert.EscalationHistory))
	for _, record := range alert.EscalationHistory {
		chain = append(chain, models.EscalationChainEntry{
			Tier:          record.Tier,
			Timestamp:     record.Timestamp,
			Reason:        record.Reason,
			NotifiedRoles: roleNames(RolesForTier(record.Tier)),
		})
	}
	return chain, nil
}

// GetActiveEscalations returns all escalated, non-resolved alerts
func (s *AlertService) GetActiveEscalations(ctx context.Context) ([]*models.Alert, error) {
	return s.store.Query(ctx, store.Filter{MinTier: 1, ActiveOnly: true})
}

func (s *AlertService) getAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	alert, err := s.store.FindByID(ctx, alertID)
	if err == store.ErrNotFound {
		return nil, NewError(KindNotFound, "Alert with ID %s not found", alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert %s: %w", alertID, err)
	}
	return alert, nil
}

// onDutyUserIDs resolves a role set to the on-duty responders holding those roles
func (s *AlertService) onDutyUserIDs(ctx context.Context, roles []models.ResponderRole) []string {
	onDuty, err := s.roster.ListOnDuty(ctx)
	if err != nil {
		logrus.Warnf("Failed to list on-duty responders: %v", err)
		return nil
	}

	ids := make([]string, 0, len(onDuty))
	for _, responder := range onDuty {
		if roleInSet(responder.Role, roles) {
			ids = append(ids, responder.ID)
		}
	}
	return ids
}

// notify delivers a signal fire-and-forget: failures are logged and never
// propagate to the triggering operation
func (s *AlertService) notify(ctx context.Context, signal Signal) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, signal); err != nil {
		logrus.Errorf("Notification delivery failed for %s on alert %s: %v", signal.Kind, signal.AlertID, err)
	}
}
