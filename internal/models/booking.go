package models

import "time"

// BookingStatus is the lifecycle state of a studio reservation.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusRejected  BookingStatus = "rejected"
)

// Booking occupies a studio and optionally an engineer for [Start, End).
type Booking struct {
	ID         string        `json:"id"`
	StudioID   string        `json:"studio_id"`
	ResourceID string        `json:"engineer_id,omitempty"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Status     BookingStatus `json:"status"`
}

// IsActive reports whether the booking takes part in conflict detection.
func (b *Booking) IsActive() bool {
	switch b.Status {
	case StatusCancelled, StatusRejected, "canceled":
		return false
	}
	return true
}

// HasResource reports whether an engineer is assigned.
func (b *Booking) HasResource() bool {
	return b.ResourceID != ""
}

// Interval returns the booked range.
func (b *Booking) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// BookingFilter selects bookings either by engineer or by studio.
type BookingFilter struct {
	ResourceID string
	StudioID   string
}
