package models

import "time"

// LeaveState is the approval state of a holiday or permission request.
type LeaveState string

const (
	LeavePending  LeaveState = "PENDING"
	LeaveApproved LeaveState = "APPROVED"
	LeaveRejected LeaveState = "REJECTED"
)

// LeavePeriod is a one-off unavailability window for an engineer.
type LeavePeriod struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"engineer_id"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	State      LeaveState `json:"state"`
}

// IsApproved reports whether the leave takes part in availability computation.
func (l *LeavePeriod) IsApproved() bool {
	return l.State == LeaveApproved
}
