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

// CapacityRepository persists session capacity configurations and counters.
//
// The capacity service serializes all counter mutations for one session
// behind a per-session lock, so single-row writes here do not race each
// other within a process. UpdateCapacity still takes a row-level lock inside
// a transaction so that a second engine instance sharing the database cannot
// interleave a read-modify-write.
type CapacityRepository struct {
	db *pgxpool.Pool
}

// NewCapacityRepository constructs a CapacityRepository.
func NewCapacityRepository(db *pgxpool.Pool) *CapacityRepository {
	return &CapacityRepository{db: db}
}

var _ service.CapacityStore = (*CapacityRepository)(nil)

const capacityColumns = `session_id, type, maximum_capacity, minimum_capacity,
	current_registered, current_waitlisted, enable_waitlist, waitlist_capacity,
	allow_overbooking, auto_promote, last_waitlist_position, created_at, updated_at`

func scanCapacity(row pgx.Row) (*model.SessionCapacity, error) {
	var sc model.SessionCapacity
	err := row.Scan(&sc.SessionID, &sc.Type, &sc.MaximumCapacity, &sc.MinimumCapacity,
		&sc.CurrentRegistered, &sc.CurrentWaitlisted, &sc.EnableWaitlist, &sc.WaitlistCapacity,
		&sc.AllowOverbooking, &sc.AutoPromote, &sc.LastWaitlistPosition, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan capacity: %w", err)
	}
	return &sc, nil
}

// GetCapacity returns the capacity config for a session or
// service.ErrNotFound.
func (r *CapacityRepository) GetCapacity(ctx context.Context, sessionID string) (*model.SessionCapacity, error) {
	return scanCapacity(r.db.QueryRow(ctx,
		`SELECT `+capacityColumns+` FROM session_capacities WHERE session_id = $1`, sessionID))
}

// CreateCapacity inserts a new capacity configuration.
func (r *CapacityRepository) CreateCapacity(ctx context.Context, sc *model.SessionCapacity) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_capacities
		 (session_id, type, maximum_capacity, minimum_capacity, current_registered,
		  current_waitlisted, enable_waitlist, waitlist_capacity, allow_overbooking,
		  auto_promote, last_waitlist_position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sc.SessionID, sc.Type, sc.MaximumCapacity, sc.MinimumCapacity, sc.CurrentRegistered,
		sc.CurrentWaitlisted, sc.EnableWaitlist, sc.WaitlistCapacity, sc.AllowOverbooking,
		sc.AutoPromote, sc.LastWaitlistPosition, sc.CreatedAt, sc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert capacity: %w", err)
	}
	return nil
}

// UpdateCapacity writes the full capacity row inside a transaction that
// first locks it, serialising cross-process writers.
func (r *CapacityRepository) UpdateCapacity(ctx context.Context, sc *model.SessionCapacity) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists int
	err = tx.QueryRow(ctx,
		`SELECT 1 FROM session_capacities WHERE session_id = $1 FOR UPDATE`,
		sc.SessionID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = service.ErrNotFound
			return err
		}
		return fmt.Errorf("lock capacity row: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE session_capacities
		 SET type = $2, maximum_capacity = $3, minimum_capacity = $4,
		     current_registered = $5, current_waitlisted = $6, enable_waitlist = $7,
		     waitlist_capacity = $8, allow_overbooking = $9, auto_promote = $10,
		     last_waitlist_position = $11, updated_at = $12
		 WHERE session_id = $1`,
		sc.SessionID, sc.Type, sc.MaximumCapacity, sc.MinimumCapacity,
		sc.CurrentRegistered, sc.CurrentWaitlisted, sc.EnableWaitlist,
		sc.WaitlistCapacity, sc.AllowOverbooking, sc.AutoPromote,
		sc.LastWaitlistPosition, sc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update capacity: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListCapacities returns the capacity configs of an event's sessions.
func (r *CapacityRepository) ListCapacities(ctx context.Context, eventID string) ([]model.SessionCapacity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT sc.session_id, sc.type, sc.maximum_capacity, sc.minimum_capacity,
		        sc.current_registered, sc.current_waitlisted, sc.enable_waitlist,
		        sc.waitlist_capacity, sc.allow_overbooking, sc.auto_promote,
		        sc.last_waitlist_position, sc.created_at, sc.updated_at
		 FROM session_capacities sc
		 JOIN sessions s ON s.id = sc.session_id
		 WHERE s.event_id = $1
		 ORDER BY sc.session_id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list capacities: %w", err)
	}
	defer rows.Close()
	return collectCapacities(rows)
}

// ListAutoPromote returns every capacity with auto-promotion enabled.
func (r *CapacityRepository) ListAutoPromote(ctx context.Context) ([]model.SessionCapacity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+capacityColumns+`
		 FROM session_capacities
		 WHERE auto_promote AND current_waitlisted > 0
		 ORDER BY session_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list auto-promote capacities: %w", err)
	}
	defer rows.Close()
	return collectCapacities(rows)
}

func collectCapacities(rows pgx.Rows) ([]model.SessionCapacity, error) {
	var out []model.SessionCapacity
	for rows.Next() {
		var sc model.SessionCapacity
		if err := rows.Scan(&sc.SessionID, &sc.Type, &sc.MaximumCapacity, &sc.MinimumCapacity,
			&sc.CurrentRegistered, &sc.CurrentWaitlisted, &sc.EnableWaitlist, &sc.WaitlistCapacity,
			&sc.AllowOverbooking, &sc.AutoPromote, &sc.LastWaitlistPosition, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan capacity: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
