package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertCloneIsDeep(t *testing.T) {
	ackedAt := time.Now()
	original := &Alert{
		ID:                "a1",
		AssignedTo:        []string{"nurse-1"},
		AcknowledgedAt:    &ackedAt,
		EscalationHistory: []EscalationRecord{{Tier: 1, Reason: "response timeout"}},
		Resolution:        &Resolution{Outcome: "stabilized", Actions: []string{"medication"}},
		Metadata:          map[string]string{"ward": "east"},
	}

	clone := original.Clone()
	clone.AssignedTo[0] = "mutated"
	clone.EscalationHistory[0].Reason = "mutated"
	clone.Resolution.Actions[0] = "mutated"
	clone.Metadata["ward"] = "mutated"
	*clone.AcknowledgedAt = ackedAt.Add(time.Hour)

	assert.Equal(t, "nurse-1", original.AssignedTo[0])
	assert.Equal(t, "response timeout", original.EscalationHistory[0].Reason)
	assert.Equal(t, "medication", original.Resolution.Actions[0])
	assert.Equal(t, "east", original.Metadata["ward"])
	assert.Equal(t, ackedAt, *original.AcknowledgedAt)
}

func TestIsAssignedTo(t *testing.T) {
	alert := &Alert{AssignedTo: []string{"nurse-1", "doc-1"}}

	assert.True(t, alert.IsAssignedTo("doc-1"))
	assert.False(t, alert.IsAssignedTo("nurse-2"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, (&Alert{Status: AlertStatusAcknowledged}).IsTerminal())
	assert.True(t, (&Alert{Status: AlertStatusResolved}).IsTerminal())
}

func TestResponderOnShift(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	open := &Responder{}
	assert.True(t, open.OnShift(now))

	scheduled := &Responder{
		ShiftStart: now.Add(-time.Hour),
		ShiftEnd:   now.Add(7 * time.Hour),
	}
	assert.True(t, scheduled.OnShift(now))
	// Shift start is inclusive, shift end exclusive
	assert.True(t, scheduled.OnShift(now.Add(-time.Hour)))
	assert.False(t, scheduled.OnShift(now.Add(7*time.Hour)))
	assert.False(t, scheduled.OnShift(now.Add(-2*time.Hour)))
}
