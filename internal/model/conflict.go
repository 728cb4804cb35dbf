package model

import "time"

// ConflictType classifies a detected scheduling inconsistency.
type ConflictType string

const (
	ConflictTimeOverlap ConflictType = "TIME_OVERLAP"
	ConflictResource    ConflictType = "RESOURCE_CONFLICT"
	ConflictCapacity    ConflictType = "CAPACITY_CONFLICT"
	ConflictUser        ConflictType = "USER_CONFLICT"
)

// Valid reports whether the conflict type is one of the known values.
func (t ConflictType) Valid() bool {
	switch t {
	case ConflictTimeOverlap, ConflictResource, ConflictCapacity, ConflictUser:
		return true
	}
	return false
}

// ScheduleConflict records one detected inconsistency between one or two
// sessions. Detection is idempotent: re-scanning an unchanged schedule never
// inserts a second record for the same (type, session pair, registrant).
type ScheduleConflict struct {
	ID               string       `json:"id"`
	EventID          string       `json:"event_id"`
	Type             ConflictType `json:"type"`
	PrimarySessionID string       `json:"primary_session_id"`

	// SecondarySessionID is nil for single-session conflicts such as a
	// capacity overrun.
	SecondarySessionID *string `json:"secondary_session_id,omitempty"`

	// RegistrantID is set on USER_CONFLICT records so the resolver can
	// compare the registrant's registration timestamps.
	RegistrantID *string `json:"registrant_id,omitempty"`

	// ResourceID is set on RESOURCE_CONFLICT records; it keeps
	// double-bookings of different resources by the same session pair
	// distinct.
	ResourceID *string `json:"resource_id,omitempty"`

	Title       string    `json:"title"`
	Description string    `json:"description"`
	Resolved    bool      `json:"resolved"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Resolution type values recorded on ConflictResolution.
const (
	ResolutionManual           = "MANUAL"
	ResolutionReschedule       = "RESCHEDULE"
	ResolutionKeepEarlierStart = "AUTO_KEEP_EARLIER_START"
	ResolutionKeepFirstBooked  = "AUTO_KEEP_FIRST_REGISTERED"
)

// ConflictResolution records how and by whom a conflict was closed.
type ConflictResolution struct {
	ID             string    `json:"id"`
	ConflictID     string    `json:"conflict_id"`
	ResolutionType string    `json:"resolution_type"`
	Notes          string    `json:"notes,omitempty"`
	ResolvedBy     string    `json:"resolved_by"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

// ResolveConflictRequest is the payload for manually resolving a conflict.
type ResolveConflictRequest struct {
	ResolutionType string `json:"resolution_type" validate:"required"`
	Notes          string `json:"notes"`
	ResolvedBy     string `json:"resolved_by" validate:"required"`
}
