package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/evently/scheduling-engine/internal/model"
)

// autoResolverActor is recorded on resolutions applied by the heuristic pass.
const autoResolverActor = "auto-resolver"

// ConflictResolver closes conflicts, either on explicit request or through a
// deterministic per-type heuristic. Resolving a conflict records who closed
// it and why; it never reschedules sessions or touches capacity counters.
// That stays with the caller, whose changes re-trigger detection.
type ConflictResolver struct {
	conflicts     ConflictStore
	sessions      SessionStore
	registrations RegistrationStore
	validate      *validator.Validate
}

// NewConflictResolver constructs a ConflictResolver.
func NewConflictResolver(conflicts ConflictStore, sessions SessionStore, registrations RegistrationStore) *ConflictResolver {
	return &ConflictResolver{
		conflicts:     conflicts,
		sessions:      sessions,
		registrations: registrations,
		validate:      validator.New(),
	}
}

// ResolveConflict records a manual resolution and marks the conflict
// resolved. Resolving an already-resolved conflict is a no-op returning the
// current record.
func (r *ConflictResolver) ResolveConflict(ctx context.Context, conflictID string, req model.ResolveConflictRequest) (*model.ScheduleConflict, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	conflict, err := r.conflicts.GetConflict(ctx, conflictID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("conflict %s: %w", conflictID, ErrNotFound)
		}
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	if conflict.Resolved {
		return conflict, nil
	}

	return r.close(ctx, conflict, req.ResolutionType, req.Notes, req.ResolvedBy)
}

// AutoResolveConflicts walks every unresolved conflict and applies the
// documented heuristic for its type:
//
//   - RESOURCE_CONFLICT: the session with the earlier start keeps the
//     resource; the other is marked for rebooking.
//   - USER_CONFLICT: the session the registrant registered for first is
//     kept; the later registration is marked for reschedule.
//   - TIME_OVERLAP, CAPACITY_CONFLICT: never auto-resolved; rescheduling and
//     capacity changes need a human decision.
//
// Conflicts the heuristic cannot safely settle are left untouched. The
// resolved conflicts are returned.
func (r *ConflictResolver) AutoResolveConflicts(ctx context.Context) ([]model.ScheduleConflict, error) {
	open, err := r.conflicts.ListUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unresolved conflicts: %w", err)
	}

	var resolved []model.ScheduleConflict
	for i := range open {
		conflict := open[i]
		var closed *model.ScheduleConflict
		switch conflict.Type {
		case model.ConflictResource:
			closed, err = r.autoResolveResource(ctx, &conflict)
		case model.ConflictUser:
			closed, err = r.autoResolveUser(ctx, &conflict)
		default:
			continue
		}
		if err != nil {
			return resolved, err
		}
		if closed != nil {
			resolved = append(resolved, *closed)
		}
	}
	return resolved, nil
}

func (r *ConflictResolver) autoResolveResource(ctx context.Context, conflict *model.ScheduleConflict) (*model.ScheduleConflict, error) {
	if conflict.SecondarySessionID == nil {
		return nil, nil
	}
	primary, err := r.sessions.GetSession(ctx, conflict.PrimarySessionID)
	if err != nil {
		return nil, r.skipIfGone(err)
	}
	secondary, err := r.sessions.GetSession(ctx, *conflict.SecondarySessionID)
	if err != nil {
		return nil, r.skipIfGone(err)
	}

	keep, move := primary, secondary
	if secondary.StartTime.Before(primary.StartTime) {
		keep, move = secondary, primary
	}
	notes := fmt.Sprintf("session %q keeps the resource (earlier start); session %q must rebook", keep.Title, move.Title)
	return r.close(ctx, conflict, model.ResolutionKeepEarlierStart, notes, autoResolverActor)
}

func (r *ConflictResolver) autoResolveUser(ctx context.Context, conflict *model.ScheduleConflict) (*model.ScheduleConflict, error) {
	if conflict.SecondarySessionID == nil || conflict.RegistrantID == nil {
		return nil, nil
	}
	first, err := r.registrations.FindByRegistrant(ctx, conflict.PrimarySessionID, *conflict.RegistrantID)
	if err != nil {
		return nil, r.skipIfGone(err)
	}
	second, err := r.registrations.FindByRegistrant(ctx, *conflict.SecondarySessionID, *conflict.RegistrantID)
	if err != nil {
		return nil, r.skipIfGone(err)
	}

	keep, reschedule := first, second
	if second.RegisteredAt.Before(first.RegisteredAt) {
		keep, reschedule = second, first
	}
	notes := fmt.Sprintf("registration %s kept (registered first); registration %s needs reschedule", keep.ID, reschedule.ID)
	return r.close(ctx, conflict, model.ResolutionKeepFirstBooked, notes, autoResolverActor)
}

// skipIfGone converts ErrNotFound into a silent skip: the schedule changed
// under the resolver, so the conflict is left for the next detection pass.
func (r *ConflictResolver) skipIfGone(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (r *ConflictResolver) close(ctx context.Context, conflict *model.ScheduleConflict, resolutionType, notes, actor string) (*model.ScheduleConflict, error) {
	resolution := &model.ConflictResolution{
		ID:             uuid.New().String(),
		ConflictID:     conflict.ID,
		ResolutionType: resolutionType,
		Notes:          notes,
		ResolvedBy:     actor,
		ResolvedAt:     time.Now().UTC(),
	}
	if err := r.conflicts.CreateResolution(ctx, resolution); err != nil {
		return nil, fmt.Errorf("record resolution: %w", err)
	}

	conflict.Resolved = true
	if err := r.conflicts.UpdateConflict(ctx, conflict); err != nil {
		return nil, fmt.Errorf("mark conflict resolved: %w", err)
	}
	return conflict, nil
}
