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

// ConflictRepository persists schedule conflicts and their resolutions.
type ConflictRepository struct {
	db *pgxpool.Pool
}

// NewConflictRepository constructs a ConflictRepository.
func NewConflictRepository(db *pgxpool.Pool) *ConflictRepository {
	return &ConflictRepository{db: db}
}

var _ service.ConflictStore = (*ConflictRepository)(nil)

const conflictColumns = `id, event_id, type, primary_session_id, secondary_session_id,
	registrant_id, resource_id, title, description, resolved, detected_at`

func scanConflict(row pgx.Row) (*model.ScheduleConflict, error) {
	var c model.ScheduleConflict
	err := row.Scan(&c.ID, &c.EventID, &c.Type, &c.PrimarySessionID, &c.SecondarySessionID,
		&c.RegistrantID, &c.ResourceID, &c.Title, &c.Description, &c.Resolved, &c.DetectedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan conflict: %w", err)
	}
	return &c, nil
}

// GetConflict returns a single conflict or service.ErrNotFound.
func (r *ConflictRepository) GetConflict(ctx context.Context, id string) (*model.ScheduleConflict, error) {
	return scanConflict(r.db.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM schedule_conflicts WHERE id = $1`, id))
}

// FindConflict locates an existing conflict by type, unordered session pair,
// optional registrant and optional resource. The pair is unordered so
// re-detection with the sessions swapped still matches the original record.
func (r *ConflictRepository) FindConflict(ctx context.Context, typ model.ConflictType, primaryID string, secondaryID, registrantID, resourceID *string) (*model.ScheduleConflict, error) {
	return scanConflict(r.db.QueryRow(ctx,
		`SELECT `+conflictColumns+`
		 FROM schedule_conflicts
		 WHERE type = $1
		   AND registrant_id IS NOT DISTINCT FROM $4
		   AND resource_id IS NOT DISTINCT FROM $5
		   AND ((primary_session_id = $2 AND secondary_session_id IS NOT DISTINCT FROM $3)
		     OR (secondary_session_id = $2 AND primary_session_id IS NOT DISTINCT FROM $3))
		 LIMIT 1`,
		typ, primaryID, secondaryID, registrantID, resourceID))
}

// CreateConflict inserts a new conflict record.
func (r *ConflictRepository) CreateConflict(ctx context.Context, c *model.ScheduleConflict) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO schedule_conflicts
		 (id, event_id, type, primary_session_id, secondary_session_id, registrant_id,
		  resource_id, title, description, resolved, detected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.EventID, c.Type, c.PrimarySessionID, c.SecondarySessionID, c.RegistrantID,
		c.ResourceID, c.Title, c.Description, c.Resolved, c.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conflict: %w", err)
	}
	return nil
}

// UpdateConflict writes the conflict's mutable fields.
func (r *ConflictRepository) UpdateConflict(ctx context.Context, c *model.ScheduleConflict) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE schedule_conflicts
		 SET title = $2, description = $3, resolved = $4
		 WHERE id = $1`,
		c.ID, c.Title, c.Description, c.Resolved,
	)
	if err != nil {
		return fmt.Errorf("update conflict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// ListUnresolved returns every open conflict, oldest first.
func (r *ConflictRepository) ListUnresolved(ctx context.Context) ([]model.ScheduleConflict, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+conflictColumns+`
		 FROM schedule_conflicts
		 WHERE NOT resolved
		 ORDER BY detected_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unresolved conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []model.ScheduleConflict
	for rows.Next() {
		var c model.ScheduleConflict
		if err := rows.Scan(&c.ID, &c.EventID, &c.Type, &c.PrimarySessionID, &c.SecondarySessionID,
			&c.RegistrantID, &c.ResourceID, &c.Title, &c.Description, &c.Resolved, &c.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// CreateResolution records how a conflict was closed.
func (r *ConflictRepository) CreateResolution(ctx context.Context, res *model.ConflictResolution) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conflict_resolutions (id, conflict_id, resolution_type, notes, resolved_by, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		res.ID, res.ConflictID, res.ResolutionType, res.Notes, res.ResolvedBy, res.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}
