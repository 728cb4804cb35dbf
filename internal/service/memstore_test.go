package service

import (
	"context"
	"sort"
	"sync"

	"github.com/evently/scheduling-engine/internal/model"
)

// memStores is an in-memory implementation of every store interface, used to
// exercise the engine without a database. All methods copy records on the
// way in and out so the engine's explicit Update calls are the only way to
// change stored state.
type memStores struct {
	mu sync.Mutex

	sessions    map[string]model.Session
	resources   []model.SessionResource
	regs        map[string]model.SessionRegistration
	checkins    map[string]bool // sessionID + "|" + registrantID
	capacities  map[string]model.SessionCapacity
	conflicts   map[string]model.ScheduleConflict
	resolutions []model.ConflictResolution
	prereqs     map[string]model.SessionPrerequisite
	deps        map[string]model.SessionDependency
}

func newMemStores() *memStores {
	return &memStores{
		sessions:   make(map[string]model.Session),
		regs:       make(map[string]model.SessionRegistration),
		checkins:   make(map[string]bool),
		capacities: make(map[string]model.SessionCapacity),
		conflicts:  make(map[string]model.ScheduleConflict),
		prereqs:    make(map[string]model.SessionPrerequisite),
		deps:       make(map[string]model.SessionDependency),
	}
}

// SessionStore / ResourceStore / CheckInStore

func (m *memStores) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStores) ListActiveSessions(_ context.Context, eventID string) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions {
		if s.EventID == eventID && s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStores) ListEventResources(_ context.Context, eventID string) ([]model.SessionResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionResource
	for _, b := range m.resources {
		if s, ok := m.sessions[b.SessionID]; ok && s.EventID == eventID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStores) HasCheckedIn(_ context.Context, sessionID, registrantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkins[sessionID+"|"+registrantID], nil
}

// RegistrationStore

func (m *memStores) GetRegistration(_ context.Context, id string) (*model.SessionRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memStores) FindByRegistrant(_ context.Context, sessionID, registrantID string) (*model.SessionRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.SessionID == sessionID && r.RegistrantID == registrantID && r.Status != model.RegistrationCancelled {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStores) ListBySession(_ context.Context, sessionID string) ([]model.SessionRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionRegistration
	for _, r := range m.regs {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStores) ListActiveByEvent(_ context.Context, eventID string) ([]model.SessionRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionRegistration
	for _, r := range m.regs {
		s, ok := m.sessions[r.SessionID]
		if ok && s.EventID == eventID && (r.Status == model.RegistrationConfirmed || r.Status == model.RegistrationWaitlisted) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStores) CreateRegistration(_ context.Context, reg *model.SessionRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[reg.ID] = *reg
	return nil
}

func (m *memStores) UpdateRegistration(_ context.Context, reg *model.SessionRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[reg.ID]; !ok {
		return ErrNotFound
	}
	m.regs[reg.ID] = *reg
	return nil
}

// CapacityStore

func (m *memStores) GetCapacity(_ context.Context, sessionID string) (*model.SessionCapacity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.capacities[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &sc, nil
}

func (m *memStores) CreateCapacity(_ context.Context, sc *model.SessionCapacity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacities[sc.SessionID] = *sc
	return nil
}

func (m *memStores) UpdateCapacity(_ context.Context, sc *model.SessionCapacity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.capacities[sc.SessionID]; !ok {
		return ErrNotFound
	}
	m.capacities[sc.SessionID] = *sc
	return nil
}

func (m *memStores) ListCapacities(_ context.Context, eventID string) ([]model.SessionCapacity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionCapacity
	for _, sc := range m.capacities {
		if s, ok := m.sessions[sc.SessionID]; ok && s.EventID == eventID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (m *memStores) ListAutoPromote(_ context.Context) ([]model.SessionCapacity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionCapacity
	for _, sc := range m.capacities {
		if sc.AutoPromote && sc.CurrentWaitlisted > 0 {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// ConflictStore

func (m *memStores) GetConflict(_ context.Context, id string) (*model.ScheduleConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *memStores) FindConflict(_ context.Context, typ model.ConflictType, primaryID string, secondaryID, registrantID, resourceID *string) (*model.ScheduleConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conflicts {
		if c.Type != typ || !strPtrEq(c.RegistrantID, registrantID) || !strPtrEq(c.ResourceID, resourceID) {
			continue
		}
		straight := c.PrimarySessionID == primaryID && strPtrEq(c.SecondarySessionID, secondaryID)
		swapped := secondaryID != nil && c.SecondarySessionID != nil &&
			c.PrimarySessionID == *secondaryID && *c.SecondarySessionID == primaryID
		if straight || swapped {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStores) CreateConflict(_ context.Context, c *model.ScheduleConflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[c.ID] = *c
	return nil
}

func (m *memStores) UpdateConflict(_ context.Context, c *model.ScheduleConflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conflicts[c.ID]; !ok {
		return ErrNotFound
	}
	m.conflicts[c.ID] = *c
	return nil
}

func (m *memStores) ListUnresolved(_ context.Context) ([]model.ScheduleConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduleConflict
	for _, c := range m.conflicts {
		if !c.Resolved {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStores) CreateResolution(_ context.Context, r *model.ConflictResolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions = append(m.resolutions, *r)
	return nil
}

// PrerequisiteStore / DependencyStore

func (m *memStores) GetPrerequisite(_ context.Context, id string) (*model.SessionPrerequisite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prereqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memStores) ListSessionPrerequisites(_ context.Context, sessionID string) ([]model.SessionPrerequisite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionPrerequisite
	for _, p := range m.prereqs {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStores) CreatePrerequisite(_ context.Context, p *model.SessionPrerequisite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prereqs[p.ID] = *p
	return nil
}

func (m *memStores) DeletePrerequisite(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prereqs[id]; !ok {
		return ErrNotFound
	}
	delete(m.prereqs, id)
	return nil
}

func (m *memStores) GetDependency(_ context.Context, id string) (*model.SessionDependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *memStores) ListByEvent(_ context.Context, eventID string) ([]model.SessionDependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionDependency
	for _, d := range m.deps {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStores) ListByDependent(_ context.Context, sessionID string) ([]model.SessionDependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionDependency
	for _, d := range m.deps {
		if d.DependentSessionID == sessionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStores) EdgeExists(_ context.Context, parentID, dependentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deps {
		if d.ParentSessionID == parentID && d.DependentSessionID == dependentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStores) CreateDependency(_ context.Context, d *model.SessionDependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps[d.ID] = *d
	return nil
}

func (m *memStores) DeleteDependency(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deps[id]; !ok {
		return ErrNotFound
	}
	delete(m.deps, id)
	return nil
}
