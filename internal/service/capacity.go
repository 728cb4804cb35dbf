package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/evently/scheduling-engine/internal/model"
)

// Optimization suggestion thresholds: sessions above the high-water
// utilization with people waiting are candidates for growth, sessions below
// the low-water mark for shrinking.
const (
	oversubscribedUtilization  = 0.95
	undersubscribedUtilization = 0.30
)

// PrerequisiteChecker gates admissions; implemented by PrerequisiteService.
type PrerequisiteChecker interface {
	CheckForRegistrant(ctx context.Context, sessionID, registrantID string, override bool) (*model.PrerequisiteCheck, error)
}

// CapacityService arbitrates finite session capacity: it admits, waitlists
// or rejects registrations, frees seats on cancellation and promotes from
// the waitlist in strict FIFO order.
//
// Every counter mutation for one session runs under that session's mutex, so
// two concurrent admissions can never both observe the same free seat. The
// same race would otherwise overbook exactly like two transactions reading
// one capacity row before either writes it back.
type CapacityService struct {
	capacities    CapacityStore
	registrations RegistrationStore
	sessions      SessionStore
	prereqs       PrerequisiteChecker
	validate      *validator.Validate

	locks sync.Map // session id -> *sync.Mutex
}

// NewCapacityService constructs a CapacityService.
func NewCapacityService(
	capacities CapacityStore,
	registrations RegistrationStore,
	sessions SessionStore,
	prereqs PrerequisiteChecker,
) *CapacityService {
	return &CapacityService{
		capacities:    capacities,
		registrations: registrations,
		sessions:      sessions,
		prereqs:       prereqs,
		validate:      validator.New(),
	}
}

// lockSession serializes counter mutations per session id and returns the
// unlock function.
func (s *CapacityService) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateSessionCapacity attaches a capacity configuration to a session.
// Fails with ErrInvalidArgument when one already exists.
func (s *CapacityService) CreateSessionCapacity(ctx context.Context, sessionID string, req model.CreateCapacityRequest) (*model.SessionCapacity, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if req.MinimumCapacity > req.MaximumCapacity {
		return nil, fmt.Errorf("%w: minimum capacity exceeds maximum", ErrInvalidArgument)
	}
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if _, err := s.capacities.GetCapacity(ctx, sessionID); err == nil {
		return nil, fmt.Errorf("%w: capacity config already exists for session %s", ErrInvalidArgument, sessionID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get capacity: %w", err)
	}

	now := time.Now().UTC()
	sc := &model.SessionCapacity{
		SessionID:        sessionID,
		Type:             model.CapacityType(req.Type),
		MaximumCapacity:  req.MaximumCapacity,
		MinimumCapacity:  req.MinimumCapacity,
		EnableWaitlist:   req.EnableWaitlist,
		WaitlistCapacity: req.WaitlistCapacity,
		AllowOverbooking: req.AllowOverbooking,
		AutoPromote:      req.AutoPromote,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.capacities.CreateCapacity(ctx, sc); err != nil {
		return nil, fmt.Errorf("create capacity: %w", err)
	}
	return sc, nil
}

// UpdateSessionCapacity applies a partial configuration update. Shrinking
// the maximum below the current registered count is rejected unless
// overbooking is allowed.
func (s *CapacityService) UpdateSessionCapacity(ctx context.Context, sessionID string, req model.UpdateCapacityRequest) (*model.SessionCapacity, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sc, err := s.capacities.GetCapacity(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("capacity for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get capacity: %w", err)
	}

	if req.Type != nil {
		sc.Type = model.CapacityType(*req.Type)
	}
	if req.MaximumCapacity != nil {
		sc.MaximumCapacity = *req.MaximumCapacity
	}
	if req.MinimumCapacity != nil {
		sc.MinimumCapacity = *req.MinimumCapacity
	}
	if req.EnableWaitlist != nil {
		sc.EnableWaitlist = *req.EnableWaitlist
	}
	if req.WaitlistCapacity != nil {
		sc.WaitlistCapacity = *req.WaitlistCapacity
	}
	if req.AllowOverbooking != nil {
		sc.AllowOverbooking = *req.AllowOverbooking
	}
	if req.AutoPromote != nil {
		sc.AutoPromote = *req.AutoPromote
	}

	if sc.MinimumCapacity > sc.MaximumCapacity {
		return nil, fmt.Errorf("%w: minimum capacity exceeds maximum", ErrInvalidArgument)
	}
	if sc.MaximumCapacity < sc.CurrentRegistered && !sc.AllowOverbooking {
		return nil, fmt.Errorf("%w: maximum capacity %d below current registered %d",
			ErrInvalidArgument, sc.MaximumCapacity, sc.CurrentRegistered)
	}

	sc.UpdatedAt = time.Now().UTC()
	if err := s.capacities.UpdateCapacity(ctx, sc); err != nil {
		return nil, fmt.Errorf("update capacity: %w", err)
	}
	return sc, nil
}

// CheckAvailability reports the admission outlook for a session.
func (s *CapacityService) CheckAvailability(ctx context.Context, sessionID string) (*model.Availability, error) {
	sc, err := s.capacities.GetCapacity(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("capacity for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get capacity: %w", err)
	}
	return &model.Availability{
		Available:      sc.AvailableSlots() > 0 || sc.AllowOverbooking,
		AvailableSlots: sc.AvailableSlots(),
		WaitlistSlots:  sc.WaitlistSlots(),
	}, nil
}

// AdmitRegistration admits a registrant into a session: confirmed while
// seats remain, waitlisted while waitlist slots remain, otherwise
// ErrCapacityExceeded. Prerequisites are checked before any counter moves,
// so a refused admission leaves no trace.
func (s *CapacityService) AdmitRegistration(ctx context.Context, sessionID string, req model.AdmitRequest) (*model.SessionRegistration, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sc, err := s.capacities.GetCapacity(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("capacity for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get capacity: %w", err)
	}

	if _, err := s.registrations.FindByRegistrant(ctx, sessionID, req.RegistrantID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}

	check, err := s.prereqs.CheckForRegistrant(ctx, sessionID, req.RegistrantID, req.AdminOverride)
	if err != nil {
		return nil, fmt.Errorf("validate prerequisites: %w", err)
	}
	if !check.Valid {
		return nil, &ValidationFailedError{Unmet: check.Unmet}
	}

	reg := &model.SessionRegistration{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		RegistrantID: req.RegistrantID,
		RegisteredAt: time.Now().UTC(),
	}

	switch {
	case sc.AvailableSlots() > 0 || sc.AllowOverbooking:
		reg.Status = model.RegistrationConfirmed
		sc.CurrentRegistered++
	case sc.WaitlistSlots() > 0:
		sc.LastWaitlistPosition++
		pos := sc.LastWaitlistPosition
		reg.Status = model.RegistrationWaitlisted
		reg.WaitlistPosition = &pos
		sc.CurrentWaitlisted++
	default:
		return nil, ErrCapacityExceeded
	}

	// Registration first, counters second. A failure between the two leaves
	// the counters behind the authoritative registration rows until
	// UpdateCapacityCounts reconciles them; it cannot overbook, since the
	// seat check above ran under the session lock.
	if err := s.registrations.CreateRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	sc.UpdatedAt = time.Now().UTC()
	if err := s.capacities.UpdateCapacity(ctx, sc); err != nil {
		return nil, fmt.Errorf("update counters: %w", err)
	}
	return reg, nil
}

// CancelRegistration marks the registration cancelled and frees whatever it
// occupied. When a confirmed seat opens and the session auto-promotes, the
// earliest waitlisted registration is confirmed and returned so the caller
// can notify the promoted registrant; otherwise the result is nil.
func (s *CapacityService) CancelRegistration(ctx context.Context, registrationID string) (*model.SessionRegistration, error) {
	reg, err := s.registrations.GetRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("registration %s: %w", registrationID, ErrNotFound)
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}

	unlock := s.lockSession(reg.SessionID)
	defer unlock()

	// Re-read under the lock; a concurrent cancel may have won.
	reg, err = s.registrations.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.Status == model.RegistrationCancelled {
		return nil, fmt.Errorf("%w: registration already cancelled", ErrInvalidArgument)
	}

	sc, err := s.capacities.GetCapacity(ctx, reg.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get capacity: %w", err)
	}

	wasConfirmed := reg.Status == model.RegistrationConfirmed
	wasWaitlisted := reg.Status == model.RegistrationWaitlisted

	// Registration rows stay authoritative: if a later write in this
	// sequence fails, the counters lag until UpdateCapacityCounts
	// reconciles them.
	now := time.Now().UTC()
	reg.Status = model.RegistrationCancelled
	reg.CancelledAt = &now
	reg.WaitlistPosition = nil
	if err := s.registrations.UpdateRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("cancel registration: %w", err)
	}

	var promoted *model.SessionRegistration
	switch {
	case wasConfirmed:
		sc.CurrentRegistered--
		if sc.AutoPromote {
			promoted, err = s.promoteNext(ctx, sc)
			if err != nil {
				return nil, err
			}
		}
	case wasWaitlisted:
		sc.CurrentWaitlisted--
	}

	sc.UpdatedAt = now
	if err := s.capacities.UpdateCapacity(ctx, sc); err != nil {
		return nil, fmt.Errorf("update counters: %w", err)
	}
	return promoted, nil
}

// promoteNext confirms the waitlisted registration with the smallest
// position and adjusts the counters on sc. Caller holds the session lock
// and persists sc. Returns nil when the waitlist is empty.
func (s *CapacityService) promoteNext(ctx context.Context, sc *model.SessionCapacity) (*model.SessionRegistration, error) {
	regs, err := s.registrations.ListBySession(ctx, sc.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	var next *model.SessionRegistration
	for i := range regs {
		r := &regs[i]
		if r.Status != model.RegistrationWaitlisted || r.WaitlistPosition == nil {
			continue
		}
		if next == nil || *r.WaitlistPosition < *next.WaitlistPosition {
			next = r
		}
	}
	if next == nil {
		return nil, nil
	}

	next.Status = model.RegistrationConfirmed
	next.WaitlistPosition = nil
	if err := s.registrations.UpdateRegistration(ctx, next); err != nil {
		return nil, fmt.Errorf("promote registration: %w", err)
	}
	sc.CurrentWaitlisted--
	sc.CurrentRegistered++
	return next, nil
}

// UpdateCapacityCounts recomputes the live counters from the authoritative
// registration records. Used to correct drift and after bulk operations.
func (s *CapacityService) UpdateCapacityCounts(ctx context.Context, sessionID string) (*model.SessionCapacity, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sc, err := s.capacities.GetCapacity(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("capacity for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get capacity: %w", err)
	}
	regs, err := s.registrations.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	var confirmed, waitlisted, maxPos int
	for i := range regs {
		switch regs[i].Status {
		case model.RegistrationConfirmed:
			confirmed++
		case model.RegistrationWaitlisted:
			waitlisted++
		}
		if p := regs[i].WaitlistPosition; p != nil && *p > maxPos {
			maxPos = *p
		}
	}

	sc.CurrentRegistered = confirmed
	sc.CurrentWaitlisted = waitlisted
	if maxPos > sc.LastWaitlistPosition {
		sc.LastWaitlistPosition = maxPos
	}
	sc.UpdatedAt = time.Now().UTC()
	if err := s.capacities.UpdateCapacity(ctx, sc); err != nil {
		return nil, fmt.Errorf("update counters: %w", err)
	}
	return sc, nil
}

// AutoPromoteWaitlistedUsers fills free seats from the waitlist on every
// session configured for auto-promotion. Returns the capacities that
// changed.
func (s *CapacityService) AutoPromoteWaitlistedUsers(ctx context.Context) ([]model.SessionCapacity, error) {
	candidates, err := s.capacities.ListAutoPromote(ctx)
	if err != nil {
		return nil, fmt.Errorf("list auto-promote capacities: %w", err)
	}

	var changed []model.SessionCapacity
	for i := range candidates {
		sessionID := candidates[i].SessionID
		sc, err := s.promoteSession(ctx, sessionID)
		if err != nil {
			return changed, err
		}
		if sc != nil {
			changed = append(changed, *sc)
		}
	}
	return changed, nil
}

func (s *CapacityService) promoteSession(ctx context.Context, sessionID string) (*model.SessionCapacity, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sc, err := s.capacities.GetCapacity(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get capacity: %w", err)
	}

	promotions := 0
	for sc.AvailableSlots() > 0 && sc.CurrentWaitlisted > 0 {
		promoted, err := s.promoteNext(ctx, sc)
		if err != nil {
			return nil, err
		}
		if promoted == nil {
			break // counters drifted; UpdateCapacityCounts reconciles
		}
		promotions++
	}
	if promotions == 0 {
		return nil, nil
	}

	sc.UpdatedAt = time.Now().UTC()
	if err := s.capacities.UpdateCapacity(ctx, sc); err != nil {
		return nil, fmt.Errorf("update counters: %w", err)
	}
	return sc, nil
}

// GetCapacityOptimizationSuggestions is a read-only pass flagging sessions
// whose configuration does not match demand. No side effects.
func (s *CapacityService) GetCapacityOptimizationSuggestions(ctx context.Context, eventID string) ([]model.CapacitySuggestion, error) {
	capacities, err := s.capacities.ListCapacities(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list capacities: %w", err)
	}

	var suggestions []model.CapacitySuggestion
	for i := range capacities {
		sc := &capacities[i]
		if sc.MaximumCapacity == 0 {
			continue
		}
		utilization := float64(sc.CurrentRegistered) / float64(sc.MaximumCapacity)

		switch {
		case utilization >= oversubscribedUtilization && sc.CurrentWaitlisted > 0:
			suggestions = append(suggestions, model.CapacitySuggestion{
				SessionID:   sc.SessionID,
				Suggestion:  "increase capacity",
				Reason:      fmt.Sprintf("%d registered of %d with %d waitlisted", sc.CurrentRegistered, sc.MaximumCapacity, sc.CurrentWaitlisted),
				Utilization: utilization,
			})
		case sc.AvailableSlots() <= 0 && !sc.EnableWaitlist:
			suggestions = append(suggestions, model.CapacitySuggestion{
				SessionID:   sc.SessionID,
				Suggestion:  "enable waitlist",
				Reason:      "session is full and turns registrants away",
				Utilization: utilization,
			})
		case utilization < undersubscribedUtilization:
			suggestions = append(suggestions, model.CapacitySuggestion{
				SessionID:   sc.SessionID,
				Suggestion:  "decrease capacity",
				Reason:      fmt.Sprintf("only %d registered of %d", sc.CurrentRegistered, sc.MaximumCapacity),
				Utilization: utilization,
			})
		}
	}
	return suggestions, nil
}
