package alerting

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/config"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/roster"
)

// AssignmentEngine selects responders for an alert by role eligibility and
// current load. Critical alerts (priority at or above the critical threshold)
// pull in doctors and get a team of two.
type AssignmentEngine struct {
	roster            roster.Roster
	loadCeiling       int
	criticalThreshold float64

	now func() time.Time
}

// NewAssignmentEngine creates an assignment engine over the given roster
func NewAssignmentEngine(r roster.Roster, policy config.PolicyConfig) *AssignmentEngine {
	ceiling := policy.ResponderLoadCeiling
	if ceiling <= 0 {
		ceiling = 5
	}
	critical := policy.CriticalThreshold
	if critical == 0 {
		critical = 9
	}
	return &AssignmentEngine{
		roster:            r,
		loadCeiling:       ceiling,
		criticalThreshold: critical,
		now:               time.Now,
	}
}

// AutoAssign picks the lowest-load eligible responder(s) for the alert and
// claims their load slots. Returns an assignment_failed domain error when no
// responder is eligible; the alert stays pending in that case.
func (e *AssignmentEngine) AutoAssign(ctx context.Context, alert *models.Alert) ([]string, error) {
	eligible, err := e.eligibleResponders(ctx, alert.Priority)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, NewError(KindAssignmentFailed, "no available staff for alert %s", alert.ID)
	}

	team := 1
	if alert.Priority >= e.criticalThreshold && len(eligible) >= 2 {
		team = 2
	}

	selected := make([]string, 0, team)
	for _, responder := range eligible[:team] {
		selected = append(selected, responder.ID)
		e.roster.AdjustLoad(responder.ID, 1)
	}

	logrus.Infof("Auto-assigned alert %s (priority %.1f) to %v", alert.ID, alert.Priority, selected)
	return selected, nil
}

// ValidateManual re-checks eligibility for a manually supplied responder set
// and returns the subset that may take the alert. Rejects with
// invalid_assignment when none of the supplied responders are eligible.
func (e *AssignmentEngine) ValidateManual(ctx context.Context, alert *models.Alert, responderIDs []string) ([]string, error) {
	if len(responderIDs) == 0 {
		return nil, NewError(KindValidation, "at least one responder id is required")
	}

	now := e.now()
	valid := make([]string, 0, len(responderIDs))
	for _, id := range responderIDs {
		responder, err := e.roster.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if responder == nil {
			logrus.Warnf("Skipping unknown responder %s for alert %s", id, alert.ID)
			continue
		}
		if e.isEligible(responder, alert.Priority, now) {
			valid = append(valid, id)
		}
	}

	if len(valid) == 0 {
		return nil, NewError(KindInvalidAssignment, "none of the supplied responders are eligible for alert %s", alert.ID)
	}
	return valid, nil
}

// ClaimLoad increments the load of each responder
func (e *AssignmentEngine) ClaimLoad(responderIDs []string) {
	for _, id := range responderIDs {
		e.roster.AdjustLoad(id, 1)
	}
}

// ReleaseLoad decrements the load of each responder
func (e *AssignmentEngine) ReleaseLoad(responderIDs []string) {
	for _, id := range responderIDs {
		e.roster.AdjustLoad(id, -1)
	}
}

// eligibleResponders returns all eligible on-duty responders sorted by
// ascending load, ties broken by id for determinism
func (e *AssignmentEngine) eligibleResponders(ctx context.Context, priority float64) ([]*models.Responder, error) {
	onDuty, err := e.roster.ListOnDuty(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	eligible := make([]*models.Responder, 0, len(onDuty))
	for _, responder := range onDuty {
		if e.isEligible(responder, priority, now) {
			eligible = append(eligible, responder)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Load != eligible[j].Load {
			return eligible[i].Load < eligible[j].Load
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible, nil
}

func (e *AssignmentEngine) isEligible(responder *models.Responder, priority float64, now time.Time) bool {
	if !responder.OnDuty || !responder.OnShift(now) {
		return false
	}
	if responder.Load >= e.loadCeiling {
		return false
	}

	switch responder.Role {
	case models.RoleNurse, models.RoleHeadNurse:
		return true
	case models.RoleDoctor:
		return priority >= e.criticalThreshold
	default:
		return false
	}
}
