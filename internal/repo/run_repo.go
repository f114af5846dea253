package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relmanhq/relman/internal/domain"
)

// runColumns — список колонок для SELECT.
const runColumns = `id, project_id, trigger_kind, trigger_branch, trigger_commit,
       status, failed_stage, failure_kind, prev_version, new_version,
       started_at, finished_at, error, created_at`

// RunRepo — репозиторий для работы с runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO runs (id, project_id, trigger_kind, trigger_branch, trigger_commit,
		                  status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.ProjectID,
		run.Trigger.Kind,
		run.Trigger.Branch,
		run.Trigger.Commit,
		run.Status,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список runs с фильтрацией.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::uuid IS NULL OR project_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.ProjectID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRunFromRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Update обновляет run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = $2, failed_stage = $3, failure_kind = $4,
		    prev_version = $5, new_version = $6,
		    started_at = $7, finished_at = $8, error = $9
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		nullString(string(run.FailedStage)),
		nullString(string(run.FailureKind)),
		nullString(run.PrevVersion),
		nullString(run.NewVersion),
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending возвращает runs в статусе PENDING.
func (r *RunRepo) ListPending(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRunFromRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// NewestPending возвращает самый свежий PENDING run проекта.
// Если pending runs нет — ErrNotFound.
func (r *RunRepo) NewestPending(ctx context.Context, projectID uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE project_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanRun(r.pool.QueryRow(ctx, query, projectID))
}

// SupersedePending помечает SUPERSEDED все pending runs проекта, кроме exceptID.
//
// Burst пушей в release-ветку схлопывается: релизится только самый
// свежий триггер. Возвращает количество вытесненных runs.
func (r *RunRepo) SupersedePending(ctx context.Context, projectID, exceptID uuid.UUID) (int, error) {
	query := `
		UPDATE runs
		SET status = 'SUPERSEDED', finished_at = now()
		WHERE project_id = $1 AND id <> $2 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, projectID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("supersede pending runs: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// DeleteTerminalBefore удаляет terminal runs проекта старше cutoff
// (вместе со stage_results через ON DELETE CASCADE).
// PUBLISHED_NOT_PUSHED намеренно не удаляется: это состояние требует
// ремедиации и не должно тихо исчезать по retention.
func (r *RunRepo) DeleteTerminalBefore(ctx context.Context, projectID uuid.UUID, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM runs
		WHERE project_id = $1
		  AND status IN ('SUCCEEDED', 'FAILED', 'SUPERSEDED')
		  AND created_at < $2
	`
	result, err := r.pool.Exec(ctx, query, projectID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal runs: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// --- Helpers ---

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	ProjectID *uuid.UUID
	Status    domain.RunStatus
	Limit     int
	Offset    int
}

// scanRun сканирует одну строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var failedStage, failureKind, prevVersion, newVersion, runError *string

	err := row.Scan(
		&run.ID,
		&run.ProjectID,
		&run.Trigger.Kind,
		&run.Trigger.Branch,
		&run.Trigger.Commit,
		&run.Status,
		&failedStage,
		&failureKind,
		&prevVersion,
		&newVersion,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	applyRunNullables(&run, failedStage, failureKind, prevVersion, newVersion, runError)
	return &run, nil
}

// scanRunFromRows сканирует строку из rows в Run.
func scanRunFromRows(rows pgx.Rows) (*domain.Run, error) {
	var run domain.Run
	var failedStage, failureKind, prevVersion, newVersion, runError *string

	err := rows.Scan(
		&run.ID,
		&run.ProjectID,
		&run.Trigger.Kind,
		&run.Trigger.Branch,
		&run.Trigger.Commit,
		&run.Status,
		&failedStage,
		&failureKind,
		&prevVersion,
		&newVersion,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	applyRunNullables(&run, failedStage, failureKind, prevVersion, newVersion, runError)
	return &run, nil
}

// applyRunNullables переносит nullable-колонки в Run.
func applyRunNullables(run *domain.Run, failedStage, failureKind, prevVersion, newVersion, runError *string) {
	if failedStage != nil {
		run.FailedStage = domain.Stage(*failedStage)
	}
	if failureKind != nil {
		run.FailureKind = domain.FailureKind(*failureKind)
	}
	if prevVersion != nil {
		run.PrevVersion = *prevVersion
	}
	if newVersion != nil {
		run.NewVersion = *newVersion
	}
	if runError != nil {
		run.Error = *runError
	}
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
