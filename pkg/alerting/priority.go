package alerting

import (
	"time"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/config"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

// Priority convention: urgency 1 is the most urgent, so the urgency factor
// (6 - urgency) / 5 decays from 1.0 at urgency 1 to 0.2 at urgency 5, and the
// result is capped at 10. A cardiac arrest at urgency 1 always scores 10.

// PriorityCalculator derives numeric priority, escalation intervals and SLA
// targets from alert type and urgency. Pure and safe for concurrent use.
type PriorityCalculator struct {
	weights       map[models.AlertType]float64
	defaultWeight float64
	intervals     []time.Duration // indexed by urgency-1
}

// NewPriorityCalculator builds a calculator from the configured policy.
// Missing tables fall back to the built-in defaults.
func NewPriorityCalculator(policy config.PolicyConfig) *PriorityCalculator {
	c := &PriorityCalculator{
		weights: map[models.AlertType]float64{
			models.AlertTypeCardiacArrest:    10,
			models.AlertTypeCodeBlue:         9,
			models.AlertTypeFire:             8,
			models.AlertTypeMedicalEmergency: 7,
			models.AlertTypeSecurity:         6,
			models.AlertTypeMedicationDue:    5,
			models.AlertTypePatientRequest:   4,
		},
		defaultWeight: 5,
		intervals: []time.Duration{
			5 * time.Minute,
			10 * time.Minute,
			15 * time.Minute,
			30 * time.Minute,
			60 * time.Minute,
		},
	}

	if len(policy.TypeWeights) > 0 {
		c.weights = make(map[models.AlertType]float64, len(policy.TypeWeights))
		for t, w := range policy.TypeWeights {
			c.weights[models.AlertType(t)] = w
		}
	}
	if policy.DefaultWeight > 0 {
		c.defaultWeight = policy.DefaultWeight
	}
	if len(policy.EscalationIntervalsMins) == 5 {
		c.intervals = make([]time.Duration, 5)
		for i, m := range policy.EscalationIntervalsMins {
			c.intervals[i] = time.Duration(m) * time.Minute
		}
	}

	return c
}

// Priority maps (type, urgency) to a numeric priority in (0, 10]
func (c *PriorityCalculator) Priority(alertType models.AlertType, urgencyLevel int) float64 {
	weight, ok := c.weights[alertType]
	if !ok {
		weight = c.defaultWeight
	}

	urgency := clampUrgency(urgencyLevel)
	priority := weight * float64(6-urgency) / 5

	if priority > 10 {
		priority = 10
	}
	return priority
}

// EscalationInterval returns the time an alert may sit unacknowledged at its
// current tier before escalating. The base interval by urgency is tightened
// for high priorities.
func (c *PriorityCalculator) EscalationInterval(urgencyLevel int, priority float64) time.Duration {
	base := c.intervals[clampUrgency(urgencyLevel)-1]

	switch {
	case priority >= 9:
		return base / 2
	case priority >= 7:
		return base * 3 / 4
	default:
		return base
	}
}

// SLA returns the acknowledgment target for a priority band
func (c *PriorityCalculator) SLA(priority float64) time.Duration {
	switch {
	case priority >= 9:
		return 3 * time.Minute
	case priority >= 7:
		return 7 * time.Minute
	case priority >= 5:
		return 15 * time.Minute
	default:
		return 45 * time.Minute
	}
}

func clampUrgency(level int) int {
	if level < 1 {
		return 1
	}
	if level > 5 {
		return 5
	}
	return level
}
