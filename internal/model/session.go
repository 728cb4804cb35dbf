// Package model defines the core domain types for the session scheduling
// integrity engine: sessions, capacity configurations, registrations,
// conflicts, prerequisites and dependency edges.
package model

import "time"

// Session represents a scheduled, time-bounded activity within an event.
// The time window is half-open: [StartTime, EndTime).
type Session struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Title        string    `json:"title"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	RoomID       string    `json:"room_id,omitempty"`
	RoomCapacity int       `json:"room_capacity,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Overlaps reports whether two sessions' time windows intersect.
// Sessions that merely touch (a.EndTime == b.StartTime) do not overlap.
func (s *Session) Overlaps(other *Session) bool {
	return s.StartTime.Before(other.EndTime) && other.StartTime.Before(s.EndTime)
}

// ResourceBookingStatus tracks the state of a resource booking.
type ResourceBookingStatus string

const (
	ResourceBookingPending   ResourceBookingStatus = "PENDING"
	ResourceBookingConfirmed ResourceBookingStatus = "CONFIRMED"
	ResourceBookingReleased  ResourceBookingStatus = "RELEASED"
)

// SessionResource binds a resource (room, projector, streaming slot, ...)
// to a session's time window.
type SessionResource struct {
	ID                string                `json:"id"`
	SessionID         string                `json:"session_id"`
	ResourceID        string                `json:"resource_id"`
	ResourceName      string                `json:"resource_name"`
	QuantityNeeded    int                   `json:"quantity_needed"`
	QuantityAllocated int                   `json:"quantity_allocated"`
	Status            ResourceBookingStatus `json:"status"`
}

// CheckIn records that a registrant was present at a session.
type CheckIn struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	RegistrantID string    `json:"registrant_id"`
	CheckedInAt  time.Time `json:"checked_in_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
