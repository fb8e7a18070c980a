package models

import (
	"time"
)

// AlertStatus represents the lifecycle status of an alert
type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "pending"
	AlertStatusAssigned     AlertStatus = "assigned"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// AlertType classifies the condition that raised the alert
type AlertType string

const (
	AlertTypeCardiacArrest    AlertType = "cardiac_arrest"
	AlertTypeCodeBlue         AlertType = "code_blue"
	AlertTypeFire             AlertType = "fire"
	AlertTypeMedicalEmergency AlertType = "medical_emergency"
	AlertTypeSecurity         AlertType = "security"
	AlertTypeMedicationDue    AlertType = "medication_due"
	AlertTypePatientRequest   AlertType = "patient_request"
)

// EscalationRecord is one entry in an alert's append-only escalation history
type EscalationRecord struct {
	Tier      int       `json:"tier"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// TimelineEvent is a derived audit event (created/assigned/acknowledged/...)
type TimelineEvent struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Resolution captures how an alert was closed out
type Resolution struct {
	Outcome          string   `json:"outcome"`
	Actions          []string `json:"actions"`
	FollowUpRequired bool     `json:"followUpRequired"`
	Notes            string   `json:"notes,omitempty"`
}

// Alert is the central entity: a condition requiring staff response
type Alert struct {
	ID           string    `json:"id"`
	Type         AlertType `json:"type"`
	UrgencyLevel int       `json:"urgencyLevel"` // 1-5, 1 = most urgent
	Priority     float64   `json:"priority"`     // computed once at creation, immutable

	Room       string `json:"room"`
	Department string `json:"department,omitempty"`
	PatientID  string `json:"patientId,omitempty"`

	Description string `json:"description"`

	Status         AlertStatus `json:"status"`
	EscalationTier int         `json:"escalationTier"` // 0 = not yet escalated

	AssignedTo     []string `json:"assignedTo,omitempty"`
	AcknowledgedBy string   `json:"acknowledgedBy,omitempty"`

	CreatedAt      time.Time  `json:"createdAt"`
	LastTierChange time.Time  `json:"lastTierChange"` // anchor for timer recovery
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`

	// Derived metrics, seconds
	ResponseTimeSeconds float64 `json:"responseTimeSeconds,omitempty"`
	HandlingTimeSeconds float64 `json:"handlingTimeSeconds,omitempty"`

	EscalationHistory []EscalationRecord `json:"escalationHistory,omitempty"`
	Timeline          []TimelineEvent    `json:"timeline,omitempty"`

	Resolution *Resolution       `json:"resolution,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// Version is an optimistic concurrency token managed by the store
	Version int64 `json:"version"`
}

// IsTerminal reports whether the alert has reached its terminal state
func (a *Alert) IsTerminal() bool {
	return a.Status == AlertStatusResolved
}

// IsAssignedTo reports whether the given responder is among the assignees
func (a *Alert) IsAssignedTo(responderID string) bool {
	for _, id := range a.AssignedTo {
		if id == responderID {
			return true
		}
	}
	return false
}

// AppendTimeline records an audit event on the alert
func (a *Alert) AppendTimeline(event, actor, detail string, at time.Time) {
	a.Timeline = append(a.Timeline, TimelineEvent{
		Event:     event,
		Timestamp: at,
		Actor:     actor,
		Detail:    detail,
	})
}

// Clone returns a deep copy so stored state is never shared with callers
func (a *Alert) Clone() *Alert {
	c := *a
	c.AssignedTo = append([]string(nil), a.AssignedTo...)
	c.EscalationHistory = append([]EscalationRecord(nil), a.EscalationHistory...)
	c.Timeline = append([]TimelineEvent(nil), a.Timeline...)
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	if a.Resolution != nil {
		r := *a.Resolution
		r.Actions = append([]string(nil), a.Resolution.Actions...)
		c.Resolution = &r
	}
	if a.Metadata != nil {
		c.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// CreateAlertRequest represents the request payload for raising an alert
type CreateAlertRequest struct {
	Type         AlertType         `json:"type"`
	UrgencyLevel int               `json:"urgencyLevel"`
	Room         string            `json:"room"`
	Department   string            `json:"department,omitempty"`
	PatientID    string            `json:"patientId,omitempty"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// AcknowledgeAlertRequest represents the request payload for acknowledging an alert
type AcknowledgeAlertRequest struct {
	UserID string `json:"userId"`
	Notes  string `json:"notes,omitempty"`
}

// BulkAcknowledgeRequest acknowledges several alerts in one call
type BulkAcknowledgeRequest struct {
	AlertIDs []string `json:"alertIds"`
	UserID   string   `json:"userId"`
	Notes    string   `json:"notes,omitempty"`
}

// BulkAcknowledgeResult is the per-alert outcome of a bulk acknowledgment
type BulkAcknowledgeResult struct {
	AlertID string `json:"alertId"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// ResolveAlertRequest represents the request payload for resolving an alert
type ResolveAlertRequest struct {
	UserID     string     `json:"userId"`
	Resolution Resolution `json:"resolution"`
}

// EscalateAlertRequest carries the reason for a manual escalation or de-escalation
type EscalateAlertRequest struct {
	Reason string `json:"reason"`
}

// AssignAlertRequest represents the request payload for manual (re)assignment
type AssignAlertRequest struct {
	ResponderIDs []string `json:"responderIds"`
}

// EscalationChainEntry describes one tier of an alert's escalation chain
type EscalationChainEntry struct {
	Tier          int       `json:"tier"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason"`
	NotifiedRoles []string  `json:"notifiedRoles"`
}
