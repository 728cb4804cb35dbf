package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/evently/scheduling-engine/internal/model"
)

// PrerequisiteService evaluates prerequisite rules per registrant and
// maintains the session dependency graph. Validation is queried
// speculatively by callers that may race with deletions, so a missing
// session or registration resolves to an invalid result instead of an
// error.
type PrerequisiteService struct {
	sessions      SessionStore
	registrations RegistrationStore
	checkins      CheckInStore
	prereqs       PrerequisiteStore
	deps          DependencyStore
	validate      *validator.Validate

	now func() time.Time
}

// NewPrerequisiteService constructs a PrerequisiteService.
func NewPrerequisiteService(
	sessions SessionStore,
	registrations RegistrationStore,
	checkins CheckInStore,
	prereqs PrerequisiteStore,
	deps DependencyStore,
) *PrerequisiteService {
	return &PrerequisiteService{
		sessions:      sessions,
		registrations: registrations,
		checkins:      checkins,
		prereqs:       prereqs,
		deps:          deps,
		validate:      validator.New(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ValidatePrerequisites evaluates every prerequisite of the session for the
// registration's holder. The override flag waives only prerequisites
// configured with AllowAdminOverride.
func (s *PrerequisiteService) ValidatePrerequisites(ctx context.Context, sessionID, registrationID string, override bool) (*model.PrerequisiteCheck, error) {
	reg, err := s.registrations.GetRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidCheck("registration not found"), nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return s.CheckForRegistrant(ctx, sessionID, reg.RegistrantID, override)
}

// CheckForRegistrant evaluates the session's prerequisites for a registrant
// directly; the capacity service uses it to gate admissions before any
// registration exists.
//
// Prerequisites sharing a group id are combined with the group's operator:
// AND needs every member satisfied, OR needs at least one. Members are
// evaluated in priority order but the result reports all unmet members, not
// just the first. Unmet-but-tolerated members (grace period, optional
// prerequisites) surface as warnings.
func (s *PrerequisiteService) CheckForRegistrant(ctx context.Context, sessionID, registrantID string, override bool) (*model.PrerequisiteCheck, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidCheck("session not found"), nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	prereqs, err := s.prereqs.ListSessionPrerequisites(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}

	check := &model.PrerequisiteCheck{Valid: true}
	for _, group := range groupPrerequisites(prereqs) {
		if err := s.evaluateGroup(ctx, session, group, registrantID, override, check); err != nil {
			return nil, err
		}
	}
	check.Valid = len(check.Unmet) == 0
	return check, nil
}

// groupPrerequisites buckets prerequisites by group id (an empty group id is
// a singleton group) and orders members by priority.
func groupPrerequisites(prereqs []model.SessionPrerequisite) [][]model.SessionPrerequisite {
	byGroup := make(map[string][]model.SessionPrerequisite)
	var order []string
	for _, p := range prereqs {
		key := p.GroupID
		if key == "" {
			key = "single:" + p.ID
		}
		if _, seen := byGroup[key]; !seen {
			order = append(order, key)
		}
		byGroup[key] = append(byGroup[key], p)
	}
	sort.Strings(order)

	groups := make([][]model.SessionPrerequisite, 0, len(order))
	for _, key := range order {
		group := byGroup[key]
		sort.Slice(group, func(i, j int) bool { return group[i].Priority < group[j].Priority })
		groups = append(groups, group)
	}
	return groups
}

// evaluateGroup records the group's unmet members on check. A store failure
// is returned as-is: it must not be mistaken for an unmet prerequisite.
func (s *PrerequisiteService) evaluateGroup(ctx context.Context, session *model.Session, group []model.SessionPrerequisite, registrantID string, override bool, check *model.PrerequisiteCheck) error {
	operator := group[0].Operator
	if !operator.Valid() {
		operator = model.OperatorAnd
	}

	var unmetMembers []model.SessionPrerequisite
	anyMet := false
	for i := range group {
		p := &group[i]
		if override && p.AllowAdminOverride {
			anyMet = true
			continue
		}
		met, err := s.satisfied(ctx, p, registrantID)
		if err != nil {
			return fmt.Errorf("evaluate prerequisite %s: %w", p.ID, err)
		}
		if !met {
			unmetMembers = append(unmetMembers, *p)
			continue
		}
		anyMet = true
	}

	satisfied := len(unmetMembers) == 0
	if operator == model.OperatorOr {
		satisfied = anyMet || len(group) == 0
	}
	if satisfied {
		return nil
	}

	for i := range unmetMembers {
		p := &unmetMembers[i]
		entry := model.UnmetPrerequisite{
			PrerequisiteID: p.ID,
			Type:           p.Type,
			GroupID:        p.GroupID,
			Message:        prerequisiteMessage(p),
		}
		if !p.IsRequired || s.withinGracePeriod(p, session) {
			check.Warnings = append(check.Warnings, entry)
			continue
		}
		check.Unmet = append(check.Unmet, entry)
	}
	return nil
}

// withinGracePeriod reports whether an unmet prerequisite is tolerated
// because the session start is within the configured grace window.
func (s *PrerequisiteService) withinGracePeriod(p *model.SessionPrerequisite, session *model.Session) bool {
	if !p.AllowGracePeriod || p.GracePeriodHours <= 0 {
		return false
	}
	grace := time.Duration(p.GracePeriodHours) * time.Hour
	return s.now().After(session.StartTime.Add(-grace))
}

func (s *PrerequisiteService) satisfied(ctx context.Context, p *model.SessionPrerequisite, registrantID string) (bool, error) {
	if p.PrerequisiteSessionID == nil {
		return false, nil // misconfigured: both types need a referenced session
	}
	switch p.Type {
	case model.PrerequisitePreviousSession:
		_, err := s.registrations.FindByRegistrant(ctx, *p.PrerequisiteSessionID, registrantID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	case model.PrerequisiteCheckinRequired:
		return s.checkins.HasCheckedIn(ctx, *p.PrerequisiteSessionID, registrantID)
	default:
		return false, nil
	}
}

func prerequisiteMessage(p *model.SessionPrerequisite) string {
	if p.ErrorMessage != "" {
		return p.ErrorMessage
	}
	ref := ""
	if p.PrerequisiteSessionID != nil {
		ref = *p.PrerequisiteSessionID
	}
	switch p.Type {
	case model.PrerequisitePreviousSession:
		return fmt.Sprintf("requires a registration for session %s", ref)
	case model.PrerequisiteCheckinRequired:
		return fmt.Sprintf("requires check-in at session %s", ref)
	}
	return "prerequisite not satisfied"
}

func invalidCheck(msg string) *model.PrerequisiteCheck {
	return &model.PrerequisiteCheck{
		Valid: false,
		Unmet: []model.UnmetPrerequisite{{Message: msg}},
	}
}

// ValidateSessionDependencies checks the registration's holder against every
// dependency edge pointing at the session: a non-cancelled registration for
// each parent session, and the minimum timing gap between parent end and
// dependent start. Violations of non-strict edges are prefixed "warning:".
func (s *PrerequisiteService) ValidateSessionDependencies(ctx context.Context, sessionID, registrationID string) ([]string, error) {
	reg, err := s.registrations.GetRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{"registration not found"}, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{"session not found"}, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	edges, err := s.deps.ListByDependent(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}

	var violations []string
	for i := range edges {
		edge := &edges[i]
		parent, err := s.sessions.GetSession(ctx, edge.ParentSessionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // parent deleted; stale edge
			}
			return nil, fmt.Errorf("get parent session: %w", err)
		}

		if _, err := s.registrations.FindByRegistrant(ctx, parent.ID, reg.RegistrantID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("find parent registration: %w", err)
			}
			violations = append(violations, flagViolation(edge,
				fmt.Sprintf("requires a registration for parent session %q", parent.Title)))
		}

		if edge.TimingGapMinutes > 0 {
			gap := time.Duration(edge.TimingGapMinutes) * time.Minute
			if session.StartTime.Before(parent.EndTime.Add(gap)) {
				violations = append(violations, flagViolation(edge,
					fmt.Sprintf("needs at least %d minutes between end of %q and start of %q",
						edge.TimingGapMinutes, parent.Title, session.Title)))
			}
		}
	}
	return violations, nil
}

func flagViolation(edge *model.SessionDependency, msg string) string {
	if edge.IsStrict {
		return msg
	}
	return "warning: " + msg
}

// CreateSessionPrerequisite attaches a prerequisite to a session.
func (s *PrerequisiteService) CreateSessionPrerequisite(ctx context.Context, req model.CreatePrerequisiteRequest) (*model.SessionPrerequisite, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if _, err := s.sessions.GetSession(ctx, req.SessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", req.SessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if req.PrerequisiteSessionID == nil {
		return nil, fmt.Errorf("%w: prerequisite session reference is required", ErrInvalidArgument)
	}
	if *req.PrerequisiteSessionID == req.SessionID {
		return nil, fmt.Errorf("%w: session cannot be its own prerequisite", ErrInvalidArgument)
	}
	if _, err := s.sessions.GetSession(ctx, *req.PrerequisiteSessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("prerequisite session %s: %w", *req.PrerequisiteSessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get prerequisite session: %w", err)
	}

	operator := model.PrerequisiteOperator(req.Operator)
	if req.Operator == "" {
		operator = model.OperatorAnd
	}

	p := &model.SessionPrerequisite{
		ID:                    uuid.New().String(),
		SessionID:             req.SessionID,
		Type:                  model.PrerequisiteType(req.Type),
		PrerequisiteSessionID: req.PrerequisiteSessionID,
		GroupID:               req.GroupID,
		Operator:              operator,
		Priority:              req.Priority,
		IsRequired:            req.IsRequired,
		GracePeriodHours:      req.GracePeriodHours,
		AllowGracePeriod:      req.AllowGracePeriod,
		AllowAdminOverride:    req.AllowAdminOverride,
		ErrorMessage:          req.ErrorMessage,
		CreatedAt:             time.Now().UTC(),
	}
	if err := s.prereqs.CreatePrerequisite(ctx, p); err != nil {
		return nil, fmt.Errorf("create prerequisite: %w", err)
	}
	return p, nil
}

// DeletePrerequisite removes a prerequisite by id.
func (s *PrerequisiteService) DeletePrerequisite(ctx context.Context, id string) error {
	if err := s.prereqs.DeletePrerequisite(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("prerequisite %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete prerequisite: %w", err)
	}
	return nil
}

// CreateSessionDependency adds a parent → dependent edge. Self-edges,
// duplicate edges and edges that would immediately close a two-session cycle
// are rejected here; full-graph cycle detection stays with the explicit
// analysis call.
func (s *PrerequisiteService) CreateSessionDependency(ctx context.Context, req model.CreateDependencyRequest) (*model.SessionDependency, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if req.ParentSessionID == req.DependentSessionID {
		return nil, fmt.Errorf("%w: session cannot depend on itself", ErrInvalidArgument)
	}

	parent, err := s.sessions.GetSession(ctx, req.ParentSessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("parent session %s: %w", req.ParentSessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get parent session: %w", err)
	}
	dependent, err := s.sessions.GetSession(ctx, req.DependentSessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("dependent session %s: %w", req.DependentSessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get dependent session: %w", err)
	}
	if parent.EventID != dependent.EventID {
		return nil, fmt.Errorf("%w: sessions belong to different events", ErrInvalidArgument)
	}

	if exists, err := s.deps.EdgeExists(ctx, req.ParentSessionID, req.DependentSessionID); err != nil {
		return nil, fmt.Errorf("check edge: %w", err)
	} else if exists {
		return nil, fmt.Errorf("%w: dependency already exists", ErrInvalidArgument)
	}
	if exists, err := s.deps.EdgeExists(ctx, req.DependentSessionID, req.ParentSessionID); err != nil {
		return nil, fmt.Errorf("check reverse edge: %w", err)
	} else if exists {
		return nil, fmt.Errorf("%w: reverse dependency exists, edge would create a cycle", ErrInvalidArgument)
	}

	depType := model.DependencyType(req.Type)
	if req.Type == "" {
		depType = model.DependencySequence
	}

	d := &model.SessionDependency{
		ID:                 uuid.New().String(),
		EventID:            parent.EventID,
		ParentSessionID:    req.ParentSessionID,
		DependentSessionID: req.DependentSessionID,
		Type:               depType,
		IsStrict:           req.IsStrict,
		TimingGapMinutes:   req.TimingGapMinutes,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.deps.CreateDependency(ctx, d); err != nil {
		return nil, fmt.Errorf("create dependency: %w", err)
	}
	return d, nil
}

// DeleteDependency removes a dependency edge by id.
func (s *PrerequisiteService) DeleteDependency(ctx context.Context, id string) error {
	if err := s.deps.DeleteDependency(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("dependency %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete dependency: %w", err)
	}
	return nil
}
