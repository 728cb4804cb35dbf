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

// RegistrationRepository persists session registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

var _ service.RegistrationStore = (*RegistrationRepository)(nil)

const registrationColumns = `id, session_id, registrant_id, status, waitlist_position,
	registered_at, cancelled_at, checked_in_at`

func scanRegistration(row pgx.Row) (*model.SessionRegistration, error) {
	var reg model.SessionRegistration
	err := row.Scan(&reg.ID, &reg.SessionID, &reg.RegistrantID, &reg.Status,
		&reg.WaitlistPosition, &reg.RegisteredAt, &reg.CancelledAt, &reg.CheckedInAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return &reg, nil
}

// GetRegistration returns a single registration or service.ErrNotFound.
func (r *RegistrationRepository) GetRegistration(ctx context.Context, id string) (*model.SessionRegistration, error) {
	return scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM session_registrations WHERE id = $1`, id))
}

// FindByRegistrant returns the registrant's non-cancelled registration for
// the session, or service.ErrNotFound.
func (r *RegistrationRepository) FindByRegistrant(ctx context.Context, sessionID, registrantID string) (*model.SessionRegistration, error) {
	return scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM session_registrations
		 WHERE session_id = $1 AND registrant_id = $2 AND status <> 'CANCELLED'
		 ORDER BY registered_at DESC
		 LIMIT 1`,
		sessionID, registrantID))
}

// ListBySession returns every registration for a session, oldest first.
func (r *RegistrationRepository) ListBySession(ctx context.Context, sessionID string) ([]model.SessionRegistration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM session_registrations
		 WHERE session_id = $1
		 ORDER BY registered_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// ListActiveByEvent returns every CONFIRMED or WAITLISTED registration
// across the event's sessions.
func (r *RegistrationRepository) ListActiveByEvent(ctx context.Context, eventID string) ([]model.SessionRegistration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT sr.id, sr.session_id, sr.registrant_id, sr.status, sr.waitlist_position,
		        sr.registered_at, sr.cancelled_at, sr.checked_in_at
		 FROM session_registrations sr
		 JOIN sessions s ON s.id = sr.session_id
		 WHERE s.event_id = $1 AND sr.status IN ('CONFIRMED', 'WAITLISTED')
		 ORDER BY sr.registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active registrations: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func collectRegistrations(rows pgx.Rows) ([]model.SessionRegistration, error) {
	var regs []model.SessionRegistration
	for rows.Next() {
		var reg model.SessionRegistration
		if err := rows.Scan(&reg.ID, &reg.SessionID, &reg.RegistrantID, &reg.Status,
			&reg.WaitlistPosition, &reg.RegisteredAt, &reg.CancelledAt, &reg.CheckedInAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// CreateRegistration inserts a new registration record.
func (r *RegistrationRepository) CreateRegistration(ctx context.Context, reg *model.SessionRegistration) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_registrations
		 (id, session_id, registrant_id, status, waitlist_position, registered_at, cancelled_at, checked_in_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		reg.ID, reg.SessionID, reg.RegistrantID, reg.Status, reg.WaitlistPosition,
		reg.RegisteredAt, reg.CancelledAt, reg.CheckedInAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// UpdateRegistration writes the registration's mutable fields.
func (r *RegistrationRepository) UpdateRegistration(ctx context.Context, reg *model.SessionRegistration) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE session_registrations
		 SET status = $2, waitlist_position = $3, cancelled_at = $4, checked_in_at = $5
		 WHERE id = $1`,
		reg.ID, reg.Status, reg.WaitlistPosition, reg.CancelledAt, reg.CheckedInAt,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}
