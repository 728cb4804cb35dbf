package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/evently/scheduling-engine/internal/model"
)

const testEvent = "evt-1"

// at builds a timestamp on a fixed test day.
func at(hour, min int) time.Time {
	return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
}

func (m *memStores) addSession(id string, start, end time.Time) {
	m.sessions[id] = model.Session{
		ID:        id,
		EventID:   testEvent,
		Title:     "session " + id,
		StartTime: start,
		EndTime:   end,
		IsActive:  true,
		CreatedAt: start.Add(-24 * time.Hour),
	}
}

func (m *memStores) addCapacity(sessionID string, max, waitlistCap int, enableWaitlist bool) *model.SessionCapacity {
	sc := model.SessionCapacity{
		SessionID:        sessionID,
		Type:             model.CapacityFixed,
		MaximumCapacity:  max,
		EnableWaitlist:   enableWaitlist,
		WaitlistCapacity: waitlistCap,
		AutoPromote:      true,
		CreatedAt:        at(0, 0),
		UpdatedAt:        at(0, 0),
	}
	m.capacities[sessionID] = sc
	return &sc
}

func (m *memStores) addRegistration(sessionID, registrantID string, status model.RegistrationStatus, registeredAt time.Time) string {
	id := uuid.New().String()
	m.regs[id] = model.SessionRegistration{
		ID:           id,
		SessionID:    sessionID,
		RegistrantID: registrantID,
		Status:       status,
		RegisteredAt: registeredAt,
	}
	return id
}

func (m *memStores) addResource(sessionID, resourceID, name string) {
	m.resources = append(m.resources, model.SessionResource{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		ResourceID:   resourceID,
		ResourceName: name,
		Status:       model.ResourceBookingConfirmed,
	})
}

func (m *memStores) addDependency(parentID, dependentID string) string {
	id := uuid.New().String()
	m.deps[id] = model.SessionDependency{
		ID:                 id,
		EventID:            testEvent,
		ParentSessionID:    parentID,
		DependentSessionID: dependentID,
		Type:               model.DependencySequence,
		IsStrict:           true,
		CreatedAt:          at(0, 0),
	}
	return id
}

func strPtr(s string) *string { return &s }

// newEngine wires the engine services over one set of in-memory stores.
func newEngine(stores *memStores) (*CapacityService, *PrerequisiteService, *ConflictDetector, *ConflictResolver) {
	prereqSvc := NewPrerequisiteService(stores, stores, stores, stores, stores)
	capacitySvc := NewCapacityService(stores, stores, stores, prereqSvc)
	detector := NewConflictDetector(stores, stores, stores, stores, stores)
	resolver := NewConflictResolver(stores, stores, stores)
	return capacitySvc, prereqSvc, detector, resolver
}
