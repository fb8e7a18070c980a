package models

import (
	"time"
)

// ResponderRole is the clinical role of a responder
type ResponderRole string

const (
	RoleNurse     ResponderRole = "nurse"
	RoleDoctor    ResponderRole = "doctor"
	RoleHeadNurse ResponderRole = "head_nurse"
	RoleAdmin     ResponderRole = "admin"
)

// Responder is a lightweight read-only view over a staff user, owned by the
// roster collaborator. The core never mutates it except through load deltas.
type Responder struct {
	ID         string        `json:"id"`
	Role       ResponderRole `json:"role"`
	OnDuty     bool          `json:"onDuty"`
	Load       int           `json:"load"` // current open-alert count
	ShiftStart time.Time     `json:"shiftStart"`
	ShiftEnd   time.Time     `json:"shiftEnd"`
}

// OnShift reports whether the responder's shift window covers the given time.
// A zero shift window means the responder is always in shift.
func (r *Responder) OnShift(now time.Time) bool {
	if r.ShiftStart.IsZero() && r.ShiftEnd.IsZero() {
		return true
	}
	return !now.Before(r.ShiftStart) && now.Before(r.ShiftEnd)
}
