// Package repository implements the engine's store interfaces on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance. Unknown
// ids map to service.ErrNotFound so the engine can branch on a single
// sentinel.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evently/scheduling-engine/internal/model"
	"github.com/evently/scheduling-engine/internal/service"
)

// SessionRepository is the read-only data source for sessions, resource
// bindings and check-ins. The engine never writes these; the surrounding
// platform owns them.
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

var (
	_ service.SessionStore  = (*SessionRepository)(nil)
	_ service.ResourceStore = (*SessionRepository)(nil)
	_ service.CheckInStore  = (*SessionRepository)(nil)
)

// GetSession returns a single session or service.ErrNotFound.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, title, start_time, end_time,
		        COALESCE(room_id, ''), COALESCE(room_capacity, 0), is_active, created_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.EventID, &s.Title, &s.StartTime, &s.EndTime,
		&s.RoomID, &s.RoomCapacity, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// ListActiveSessions returns the event's active sessions ordered by start
// time.
func (r *SessionRepository) ListActiveSessions(ctx context.Context, eventID string) ([]model.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, title, start_time, end_time,
		        COALESCE(room_id, ''), COALESCE(room_capacity, 0), is_active, created_at
		 FROM sessions
		 WHERE event_id = $1 AND is_active
		 ORDER BY start_time ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.EventID, &s.Title, &s.StartTime, &s.EndTime,
			&s.RoomID, &s.RoomCapacity, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListEventResources returns every resource binding across the event's
// sessions.
func (r *SessionRepository) ListEventResources(ctx context.Context, eventID string) ([]model.SessionResource, error) {
	rows, err := r.db.Query(ctx,
		`SELECT sr.id, sr.session_id, sr.resource_id, sr.resource_name,
		        sr.quantity_needed, sr.quantity_allocated, sr.status
		 FROM session_resources sr
		 JOIN sessions s ON s.id = sr.session_id
		 WHERE s.event_id = $1
		 ORDER BY sr.resource_id, sr.session_id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var bindings []model.SessionResource
	for rows.Next() {
		var b model.SessionResource
		if err := rows.Scan(&b.ID, &b.SessionID, &b.ResourceID, &b.ResourceName,
			&b.QuantityNeeded, &b.QuantityAllocated, &b.Status); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// HasCheckedIn reports whether a check-in record exists for the registrant
// and session.
func (r *SessionRepository) HasCheckedIn(ctx context.Context, sessionID, registrantID string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM check_ins WHERE session_id = $1 AND registrant_id = $2`,
		sessionID, registrantID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check check-in: %w", err)
	}
	return count > 0, nil
}
