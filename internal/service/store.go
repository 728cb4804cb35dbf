package service

import (
	"context"

	"github.com/evently/scheduling-engine/internal/model"
)

// The engine never performs I/O itself; it reads and writes plain records
// through the narrow store interfaces below. internal/repository provides the
// postgres implementations. Stores return ErrNotFound (possibly wrapped) for
// unknown ids.

// SessionStore is the read-only source of session schedules.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListActiveSessions(ctx context.Context, eventID string) ([]model.Session, error)
}

// ResourceStore is the read-only source of resource bindings.
type ResourceStore interface {
	ListEventResources(ctx context.Context, eventID string) ([]model.SessionResource, error)
}

// CheckInStore answers attendance queries for prerequisite evaluation.
type CheckInStore interface {
	HasCheckedIn(ctx context.Context, sessionID, registrantID string) (bool, error)
}

// RegistrationStore persists session registrations.
type RegistrationStore interface {
	GetRegistration(ctx context.Context, id string) (*model.SessionRegistration, error)
	// FindByRegistrant returns the registrant's non-cancelled registration
	// for the session, or ErrNotFound.
	FindByRegistrant(ctx context.Context, sessionID, registrantID string) (*model.SessionRegistration, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.SessionRegistration, error)
	// ListActiveByEvent returns every CONFIRMED or WAITLISTED registration
	// across the event's sessions.
	ListActiveByEvent(ctx context.Context, eventID string) ([]model.SessionRegistration, error)
	CreateRegistration(ctx context.Context, reg *model.SessionRegistration) error
	UpdateRegistration(ctx context.Context, reg *model.SessionRegistration) error
}

// CapacityStore persists capacity configurations and their counters.
type CapacityStore interface {
	GetCapacity(ctx context.Context, sessionID string) (*model.SessionCapacity, error)
	CreateCapacity(ctx context.Context, sc *model.SessionCapacity) error
	UpdateCapacity(ctx context.Context, sc *model.SessionCapacity) error
	ListCapacities(ctx context.Context, eventID string) ([]model.SessionCapacity, error)
	// ListAutoPromote returns every capacity with auto-promotion enabled,
	// across events.
	ListAutoPromote(ctx context.Context) ([]model.SessionCapacity, error)
}

// ConflictStore persists detected conflicts and their resolutions.
type ConflictStore interface {
	GetConflict(ctx context.Context, id string) (*model.ScheduleConflict, error)
	// FindConflict locates an existing conflict by type, unordered session
	// pair, optional registrant and optional resource. Detection uses it to
	// stay idempotent.
	FindConflict(ctx context.Context, typ model.ConflictType, primaryID string, secondaryID, registrantID, resourceID *string) (*model.ScheduleConflict, error)
	CreateConflict(ctx context.Context, c *model.ScheduleConflict) error
	UpdateConflict(ctx context.Context, c *model.ScheduleConflict) error
	ListUnresolved(ctx context.Context) ([]model.ScheduleConflict, error)
	CreateResolution(ctx context.Context, r *model.ConflictResolution) error
}

// PrerequisiteStore persists session prerequisites.
type PrerequisiteStore interface {
	GetPrerequisite(ctx context.Context, id string) (*model.SessionPrerequisite, error)
	ListSessionPrerequisites(ctx context.Context, sessionID string) ([]model.SessionPrerequisite, error)
	CreatePrerequisite(ctx context.Context, p *model.SessionPrerequisite) error
	DeletePrerequisite(ctx context.Context, id string) error
}

// DependencyStore persists the directed session dependency graph.
type DependencyStore interface {
	GetDependency(ctx context.Context, id string) (*model.SessionDependency, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.SessionDependency, error)
	// ListByDependent returns the edges whose dependent side is sessionID.
	ListByDependent(ctx context.Context, sessionID string) ([]model.SessionDependency, error)
	EdgeExists(ctx context.Context, parentID, dependentID string) (bool, error)
	CreateDependency(ctx context.Context, d *model.SessionDependency) error
	DeleteDependency(ctx context.Context, id string) error
}
