// Package service implements the session scheduling integrity engine:
// conflict detection and resolution, capacity arbitration with FIFO
// waitlists, and prerequisite/dependency validation. It holds all business
// logic and talks to persistence only through the store interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/evently/scheduling-engine/internal/model"
)

// ConflictDetector scans an event's active sessions for scheduling
// inconsistencies. Detection is a read-mostly pass; its only side effect is
// inserting conflict records that do not already exist, so running it twice
// on an unchanged schedule yields the same conflict set.
type ConflictDetector struct {
	sessions      SessionStore
	resources     ResourceStore
	registrations RegistrationStore
	capacities    CapacityStore
	conflicts     ConflictStore
}

// NewConflictDetector constructs a ConflictDetector.
func NewConflictDetector(
	sessions SessionStore,
	resources ResourceStore,
	registrations RegistrationStore,
	capacities CapacityStore,
	conflicts ConflictStore,
) *ConflictDetector {
	return &ConflictDetector{
		sessions:      sessions,
		resources:     resources,
		registrations: registrations,
		capacities:    capacities,
		conflicts:     conflicts,
	}
}

// DetectAllConflicts runs every detection pass over the event and returns
// the combined conflict set.
func (d *ConflictDetector) DetectAllConflicts(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	var all []model.ScheduleConflict

	overlaps, err := d.DetectTimeOverlapConflicts(ctx, eventID)
	if err != nil {
		return nil, err
	}
	all = append(all, overlaps...)

	resConflicts, err := d.DetectResourceConflicts(ctx, eventID)
	if err != nil {
		return nil, err
	}
	all = append(all, resConflicts...)

	capConflicts, err := d.DetectCapacityConflicts(ctx, eventID)
	if err != nil {
		return nil, err
	}
	all = append(all, capConflicts...)

	userConflicts, err := d.DetectUserConflicts(ctx, eventID)
	if err != nil {
		return nil, err
	}
	all = append(all, userConflicts...)

	return all, nil
}

// DetectTimeOverlapConflicts flags every pair of active sessions whose time
// windows intersect. Sessions sharing only a boundary instant do not
// overlap. Sessions are sorted by start time so the inner scan can stop at
// the first session starting at or after the current one's end.
func (d *ConflictDetector) DetectTimeOverlapConflicts(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	sessions, err := d.sessions.ListActiveSessions(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})

	var found []model.ScheduleConflict
	for i := range sessions {
		for j := i + 1; j < len(sessions); j++ {
			if !sessions[j].StartTime.Before(sessions[i].EndTime) {
				break // sorted by start: nothing later can overlap sessions[i]
			}
			c, err := d.recordConflict(ctx, model.ScheduleConflict{
				EventID:            eventID,
				Type:               model.ConflictTimeOverlap,
				PrimarySessionID:   sessions[i].ID,
				SecondarySessionID: &sessions[j].ID,
				Title:              "Session time overlap",
				Description: fmt.Sprintf("%q (%s – %s) overlaps %q (%s – %s)",
					sessions[i].Title, sessions[i].StartTime.Format(time.RFC3339), sessions[i].EndTime.Format(time.RFC3339),
					sessions[j].Title, sessions[j].StartTime.Format(time.RFC3339), sessions[j].EndTime.Format(time.RFC3339)),
			})
			if err != nil {
				return nil, err
			}
			found = append(found, *c)
		}
	}
	return found, nil
}

// DetectResourceConflicts flags overlapping-time bookings of the same
// resource. Sessions without resource bindings contribute nothing.
func (d *ConflictDetector) DetectResourceConflicts(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	sessions, err := d.sessions.ListActiveSessions(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	bindings, err := d.resources.ListEventResources(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	byID := sessionIndex(sessions)
	byResource := make(map[string][]model.SessionResource)
	for _, b := range bindings {
		if b.Status == model.ResourceBookingReleased {
			continue
		}
		if _, ok := byID[b.SessionID]; !ok {
			continue // binding to an inactive or foreign session
		}
		byResource[b.ResourceID] = append(byResource[b.ResourceID], b)
	}

	var found []model.ScheduleConflict
	for _, group := range byResource {
		sort.Slice(group, func(i, j int) bool { return group[i].SessionID < group[j].SessionID })
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				a, b := byID[group[i].SessionID], byID[group[j].SessionID]
				if a.ID == b.ID || !a.Overlaps(b) {
					continue
				}
				rid := group[i].ResourceID
				c, err := d.recordConflict(ctx, model.ScheduleConflict{
					EventID:            eventID,
					Type:               model.ConflictResource,
					PrimarySessionID:   a.ID,
					SecondarySessionID: &b.ID,
					ResourceID:         &rid,
					Title:              "Resource double-booking",
					Description: fmt.Sprintf("resource %q is booked by both %q and %q during overlapping times",
						group[i].ResourceName, a.Title, b.Title),
				})
				if err != nil {
					return nil, err
				}
				found = append(found, *c)
			}
		}
	}
	return found, nil
}

// DetectCapacityConflicts flags sessions whose capacity configuration is
// overrun or inconsistent with the physical room. Sessions without a
// capacity record produce nothing.
func (d *ConflictDetector) DetectCapacityConflicts(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	sessions, err := d.sessions.ListActiveSessions(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var found []model.ScheduleConflict
	for i := range sessions {
		s := &sessions[i]
		sc, err := d.capacities.GetCapacity(ctx, s.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get capacity for session %s: %w", s.ID, err)
		}

		var reason string
		switch {
		case sc.CurrentRegistered > sc.MaximumCapacity && !sc.AllowOverbooking:
			reason = fmt.Sprintf("%d registered for %d seats", sc.CurrentRegistered, sc.MaximumCapacity)
		case sc.CurrentWaitlisted > sc.WaitlistCapacity:
			reason = fmt.Sprintf("%d waitlisted for %d waitlist slots", sc.CurrentWaitlisted, sc.WaitlistCapacity)
		case s.RoomCapacity > 0 && sc.MaximumCapacity > s.RoomCapacity:
			reason = fmt.Sprintf("configured capacity %d exceeds room capacity %d", sc.MaximumCapacity, s.RoomCapacity)
		default:
			continue
		}

		c, err := d.recordConflict(ctx, model.ScheduleConflict{
			EventID:          eventID,
			Type:             model.ConflictCapacity,
			PrimarySessionID: s.ID,
			Title:            "Capacity overrun",
			Description:      fmt.Sprintf("session %q: %s", s.Title, reason),
		})
		if err != nil {
			return nil, err
		}
		found = append(found, *c)
	}
	return found, nil
}

// DetectUserConflicts flags registrants holding active registrations for
// overlapping sessions of the event.
func (d *ConflictDetector) DetectUserConflicts(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	sessions, err := d.sessions.ListActiveSessions(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	regs, err := d.registrations.ListActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	byID := sessionIndex(sessions)
	byRegistrant := make(map[string][]model.SessionRegistration)
	for _, r := range regs {
		if _, ok := byID[r.SessionID]; !ok {
			continue
		}
		byRegistrant[r.RegistrantID] = append(byRegistrant[r.RegistrantID], r)
	}

	registrants := make([]string, 0, len(byRegistrant))
	for id := range byRegistrant {
		registrants = append(registrants, id)
	}
	sort.Strings(registrants)

	var found []model.ScheduleConflict
	for _, registrantID := range registrants {
		own := byRegistrant[registrantID]
		if len(own) < 2 {
			continue
		}
		sort.Slice(own, func(i, j int) bool { return own[i].SessionID < own[j].SessionID })
		for i := range own {
			for j := i + 1; j < len(own); j++ {
				a, b := byID[own[i].SessionID], byID[own[j].SessionID]
				if !a.Overlaps(b) {
					continue
				}
				rid := registrantID
				c, err := d.recordConflict(ctx, model.ScheduleConflict{
					EventID:            eventID,
					Type:               model.ConflictUser,
					PrimarySessionID:   a.ID,
					SecondarySessionID: &b.ID,
					RegistrantID:       &rid,
					Title:              "Attendee double-booking",
					Description: fmt.Sprintf("registrant %s holds registrations for overlapping sessions %q and %q",
						registrantID, a.Title, b.Title),
				})
				if err != nil {
					return nil, err
				}
				found = append(found, *c)
			}
		}
	}
	return found, nil
}

// recordConflict inserts the conflict unless an equivalent record already
// exists, and returns whichever record now represents it. Identity is
// (type, unordered session pair, registrant, resource), so the same session
// pair double-booking two resources yields two records.
func (d *ConflictDetector) recordConflict(ctx context.Context, c model.ScheduleConflict) (*model.ScheduleConflict, error) {
	existing, err := d.conflicts.FindConflict(ctx, c.Type, c.PrimarySessionID, c.SecondarySessionID, c.RegistrantID, c.ResourceID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find conflict: %w", err)
	}

	c.ID = uuid.New().String()
	c.DetectedAt = time.Now().UTC()
	if err := d.conflicts.CreateConflict(ctx, &c); err != nil {
		return nil, fmt.Errorf("insert conflict: %w", err)
	}
	return &c, nil
}

func sessionIndex(sessions []model.Session) map[string]*model.Session {
	byID := make(map[string]*model.Session, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID] = &sessions[i]
	}
	return byID
}
