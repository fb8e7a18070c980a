package alerting

import (
	"context"
	"time"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

// SignalKind identifies an outbound notification event
type SignalKind string

const (
	SignalAssigned          SignalKind = "alert_assigned"
	SignalAssignmentFailed  SignalKind = "assignment_failed"
	SignalEscalated         SignalKind = "alert_escalated"
	SignalDeEscalated       SignalKind = "alert_de_escalated"
	SignalEscalationWarning SignalKind = "escalation_warning"
	SignalSLABreach         SignalKind = "sla_breach"
	SignalResolved          SignalKind = "alert_resolved"
)

// Signal is the typed outbound event contract. The core emits signals through
// the NotificationSink port and never depends on delivery mechanics.
type Signal struct {
	Kind    SignalKind `json:"kind"`
	AlertID string     `json:"alertId"`
	Room    string     `json:"room,omitempty"`
	At      time.Time  `json:"at"`

	// Targets: either specific user ids or a role set, depending on the kind
	UserIDs []string               `json:"userIds,omitempty"`
	Roles   []models.ResponderRole `json:"roles,omitempty"`

	Tier             int           `json:"tier,omitempty"`             // escalated / de-escalated / warning
	RemainingSeconds float64       `json:"remainingSeconds,omitempty"` // escalation warning countdown
	Breach           time.Duration `json:"breach,omitempty"`           // how far past the SLA target
	Message          string        `json:"message,omitempty"`
}

// NotificationSink delivers signals to staff. Delivery is fire-and-forget:
// errors are logged by the caller and never block a state transition.
type NotificationSink interface {
	Notify(ctx context.Context, signal Signal) error
}

// RolesForTier returns the role set notified at an escalation tier. Each tier
// widens the audience; acknowledgment by any of these roles is accepted once
// the alert has escalated to that tier.
func RolesForTier(tier int) []models.ResponderRole {
	roles := []models.ResponderRole{models.RoleNurse}
	if tier >= 1 {
		roles = append(roles, models.RoleDoctor)
	}
	if tier >= 2 {
		roles = append(roles, models.RoleHeadNurse)
	}
	if tier >= 3 {
		roles = append(roles, models.RoleAdmin)
	}
	return roles
}

func roleInSet(role models.ResponderRole, set []models.ResponderRole) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}

func roleNames(roles []models.ResponderRole) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}
