package model

import "time"

// CapacityType selects the admission policy for a session.
type CapacityType string

const (
	// CapacityFixed is a hard cap that only an explicit config change can move.
	CapacityFixed CapacityType = "FIXED"
	// CapacityDynamic marks a capacity that organizers may adjust while
	// registration is open.
	CapacityDynamic CapacityType = "DYNAMIC"
)

// Valid reports whether the capacity type is one of the known values.
func (t CapacityType) Valid() bool {
	return t == CapacityFixed || t == CapacityDynamic
}

// SessionCapacity holds the admission configuration and live counters for
// one session. Counters are mutated only through the capacity service's
// serialized operations, never written directly by callers.
type SessionCapacity struct {
	SessionID         string       `json:"session_id"`
	Type              CapacityType `json:"type"`
	MaximumCapacity   int          `json:"maximum_capacity"`
	MinimumCapacity   int          `json:"minimum_capacity"`
	CurrentRegistered int          `json:"current_registered"`
	CurrentWaitlisted int          `json:"current_waitlisted"`
	EnableWaitlist    bool         `json:"enable_waitlist"`
	WaitlistCapacity  int          `json:"waitlist_capacity"`
	AllowOverbooking  bool         `json:"allow_overbooking"`
	AutoPromote       bool         `json:"auto_promote_from_waitlist"`

	// LastWaitlistPosition is a high-water mark: it only ever increases, so
	// waitlist positions are never reused even after promotions and
	// cancellations. FIFO order is by position value, not contiguity.
	LastWaitlistPosition int `json:"last_waitlist_position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailableSlots returns the number of confirmable seats remaining. The
// result is negative only when overbooking is allowed and in effect.
func (c *SessionCapacity) AvailableSlots() int {
	n := c.MaximumCapacity - c.CurrentRegistered
	if n < 0 && !c.AllowOverbooking {
		return 0
	}
	return n
}

// WaitlistSlots returns the number of open waitlist positions.
func (c *SessionCapacity) WaitlistSlots() int {
	if !c.EnableWaitlist {
		return 0
	}
	if n := c.WaitlistCapacity - c.CurrentWaitlisted; n > 0 {
		return n
	}
	return 0
}

// RegistrationStatus is the lifecycle state of a session registration.
type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "PENDING"
	RegistrationConfirmed  RegistrationStatus = "CONFIRMED"
	RegistrationWaitlisted RegistrationStatus = "WAITLISTED"
	RegistrationCancelled  RegistrationStatus = "CANCELLED"
)

// SessionRegistration links a registrant to a session.
type SessionRegistration struct {
	ID           string             `json:"id"`
	SessionID    string             `json:"session_id"`
	RegistrantID string             `json:"registrant_id"`
	Status       RegistrationStatus `json:"status"`

	// WaitlistPosition is set only while Status is WAITLISTED. Positions
	// increase strictly in admission order.
	WaitlistPosition *int `json:"waitlist_position,omitempty"`

	RegisteredAt time.Time  `json:"registered_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

// IsActive reports whether the registration occupies a confirmed seat or a
// waitlist slot.
func (r *SessionRegistration) IsActive() bool {
	return r.Status == RegistrationConfirmed || r.Status == RegistrationWaitlisted
}

// Availability summarises the admission outlook for one session.
type Availability struct {
	Available      bool `json:"available"`
	AvailableSlots int  `json:"available_slots"`
	WaitlistSlots  int  `json:"waitlist_slots"`
}

// CreateCapacityRequest is the payload for creating a capacity config.
type CreateCapacityRequest struct {
	Type             string `json:"type" validate:"required,oneof=FIXED DYNAMIC"`
	MaximumCapacity  int    `json:"maximum_capacity" validate:"required,gt=0"`
	MinimumCapacity  int    `json:"minimum_capacity" validate:"gte=0"`
	EnableWaitlist   bool   `json:"enable_waitlist"`
	WaitlistCapacity int    `json:"waitlist_capacity" validate:"gte=0"`
	AllowOverbooking bool   `json:"allow_overbooking"`
	AutoPromote      bool   `json:"auto_promote_from_waitlist"`
}

// UpdateCapacityRequest carries a partial capacity update; nil fields are
// left unchanged.
type UpdateCapacityRequest struct {
	Type             *string `json:"type,omitempty" validate:"omitempty,oneof=FIXED DYNAMIC"`
	MaximumCapacity  *int    `json:"maximum_capacity,omitempty" validate:"omitempty,gt=0"`
	MinimumCapacity  *int    `json:"minimum_capacity,omitempty" validate:"omitempty,gte=0"`
	EnableWaitlist   *bool   `json:"enable_waitlist,omitempty"`
	WaitlistCapacity *int    `json:"waitlist_capacity,omitempty" validate:"omitempty,gte=0"`
	AllowOverbooking *bool   `json:"allow_overbooking,omitempty"`
	AutoPromote      *bool   `json:"auto_promote_from_waitlist,omitempty"`
}

// AdmitRequest is the payload for registering someone into a session.
type AdmitRequest struct {
	RegistrantID string `json:"registrant_id" validate:"required"`
	// AdminOverride lets a privileged caller waive prerequisites that were
	// configured as overridable. It is an explicit flag, never implied.
	AdminOverride bool `json:"admin_override"`
}

// CapacitySuggestion flags a session whose capacity configuration does not
// match observed demand. Purely advisory; producing one has no side effects.
type CapacitySuggestion struct {
	SessionID   string  `json:"session_id"`
	Suggestion  string  `json:"suggestion"`
	Reason      string  `json:"reason"`
	Utilization float64 `json:"utilization"`
}
