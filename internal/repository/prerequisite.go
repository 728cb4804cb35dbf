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

// PrerequisiteRepository persists session prerequisites and dependency
// edges.
type PrerequisiteRepository struct {
	db *pgxpool.Pool
}

// NewPrerequisiteRepository constructs a PrerequisiteRepository.
func NewPrerequisiteRepository(db *pgxpool.Pool) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

var (
	_ service.PrerequisiteStore = (*PrerequisiteRepository)(nil)
	_ service.DependencyStore   = (*PrerequisiteRepository)(nil)
)

const prerequisiteColumns = `id, session_id, type, prerequisite_session_id, group_id,
	operator, priority, is_required, grace_period_hours, allow_grace_period,
	allow_admin_override, COALESCE(error_message, ''), created_at`

func scanPrerequisite(row pgx.Row) (*model.SessionPrerequisite, error) {
	var p model.SessionPrerequisite
	err := row.Scan(&p.ID, &p.SessionID, &p.Type, &p.PrerequisiteSessionID, &p.GroupID,
		&p.Operator, &p.Priority, &p.IsRequired, &p.GracePeriodHours, &p.AllowGracePeriod,
		&p.AllowAdminOverride, &p.ErrorMessage, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan prerequisite: %w", err)
	}
	return &p, nil
}

// GetPrerequisite returns a single prerequisite or service.ErrNotFound.
func (r *PrerequisiteRepository) GetPrerequisite(ctx context.Context, id string) (*model.SessionPrerequisite, error) {
	return scanPrerequisite(r.db.QueryRow(ctx,
		`SELECT `+prerequisiteColumns+` FROM session_prerequisites WHERE id = $1`, id))
}

// ListSessionPrerequisites returns the session's prerequisites ordered by
// group and priority.
func (r *PrerequisiteRepository) ListSessionPrerequisites(ctx context.Context, sessionID string) ([]model.SessionPrerequisite, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+prerequisiteColumns+`
		 FROM session_prerequisites
		 WHERE session_id = $1
		 ORDER BY group_id, priority ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	defer rows.Close()

	var prereqs []model.SessionPrerequisite
	for rows.Next() {
		var p model.SessionPrerequisite
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Type, &p.PrerequisiteSessionID, &p.GroupID,
			&p.Operator, &p.Priority, &p.IsRequired, &p.GracePeriodHours, &p.AllowGracePeriod,
			&p.AllowAdminOverride, &p.ErrorMessage, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prerequisite: %w", err)
		}
		prereqs = append(prereqs, p)
	}
	return prereqs, rows.Err()
}

// CreatePrerequisite inserts a new prerequisite.
func (r *PrerequisiteRepository) CreatePrerequisite(ctx context.Context, p *model.SessionPrerequisite) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_prerequisites
		 (id, session_id, type, prerequisite_session_id, group_id, operator, priority,
		  is_required, grace_period_hours, allow_grace_period, allow_admin_override,
		  error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SessionID, p.Type, p.PrerequisiteSessionID, p.GroupID, p.Operator, p.Priority,
		p.IsRequired, p.GracePeriodHours, p.AllowGracePeriod, p.AllowAdminOverride,
		p.ErrorMessage, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prerequisite: %w", err)
	}
	return nil
}

// DeletePrerequisite removes a prerequisite by id.
func (r *PrerequisiteRepository) DeletePrerequisite(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM session_prerequisites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prerequisite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

const dependencyColumns = `id, event_id, parent_session_id, dependent_session_id,
	type, is_strict, timing_gap_minutes, created_at`

// GetDependency returns a single dependency edge or service.ErrNotFound.
func (r *PrerequisiteRepository) GetDependency(ctx context.Context, id string) (*model.SessionDependency, error) {
	var d model.SessionDependency
	err := r.db.QueryRow(ctx,
		`SELECT `+dependencyColumns+` FROM session_dependencies WHERE id = $1`, id,
	).Scan(&d.ID, &d.EventID, &d.ParentSessionID, &d.DependentSessionID,
		&d.Type, &d.IsStrict, &d.TimingGapMinutes, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("get dependency: %w", err)
	}
	return &d, nil
}

// ListByEvent returns every dependency edge of an event.
func (r *PrerequisiteRepository) ListByEvent(ctx context.Context, eventID string) ([]model.SessionDependency, error) {
	return r.listDependencies(ctx,
		`SELECT `+dependencyColumns+` FROM session_dependencies WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID)
}

// ListByDependent returns the edges whose dependent side is sessionID.
func (r *PrerequisiteRepository) ListByDependent(ctx context.Context, sessionID string) ([]model.SessionDependency, error) {
	return r.listDependencies(ctx,
		`SELECT `+dependencyColumns+` FROM session_dependencies WHERE dependent_session_id = $1 ORDER BY created_at ASC`,
		sessionID)
}

func (r *PrerequisiteRepository) listDependencies(ctx context.Context, query string, arg any) ([]model.SessionDependency, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []model.SessionDependency
	for rows.Next() {
		var d model.SessionDependency
		if err := rows.Scan(&d.ID, &d.EventID, &d.ParentSessionID, &d.DependentSessionID,
			&d.Type, &d.IsStrict, &d.TimingGapMinutes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// EdgeExists reports whether a parent → dependent edge is already recorded.
func (r *PrerequisiteRepository) EdgeExists(ctx context.Context, parentID, dependentID string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_dependencies
		 WHERE parent_session_id = $1 AND dependent_session_id = $2`,
		parentID, dependentID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check edge: %w", err)
	}
	return count > 0, nil
}

// CreateDependency inserts a new dependency edge.
func (r *PrerequisiteRepository) CreateDependency(ctx context.Context, d *model.SessionDependency) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_dependencies
		 (id, event_id, parent_session_id, dependent_session_id, type, is_strict, timing_gap_minutes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.EventID, d.ParentSessionID, d.DependentSessionID, d.Type, d.IsStrict,
		d.TimingGapMinutes, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dependency: %w", err)
	}
	return nil
}

// DeleteDependency removes a dependency edge by id.
func (r *PrerequisiteRepository) DeleteDependency(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM session_dependencies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dependency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}
