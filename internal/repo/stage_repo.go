package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relmanhq/relman/internal/domain"
)

// StageRepo — репозиторий для работы с результатами стадий.
type StageRepo struct {
	pool *pgxpool.Pool
}

// NewStageRepo создаёт новый StageRepo.
func NewStageRepo(pool *pgxpool.Pool) *StageRepo {
	return &StageRepo{pool: pool}
}

// Create сохраняет стартовавшую стадию (status = RUNNING).
//
// Записи append-only: повторная попытка push после PUBLISHED_NOT_PUSHED
// добавляет новую запись PUSH, а не переписывает упавшую.
func (r *StageRepo) Create(ctx context.Context, result *domain.StageResult) error {
	query := `
		INSERT INTO stage_results (id, run_id, stage, status, stdout, stderr, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		result.ID,
		result.RunID,
		result.Stage,
		result.Status,
		result.Stdout,
		result.Stderr,
		nullString(result.Error),
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stage result: %w", err)
	}
	return nil
}

// Finalize записывает терминальный статус стадии.
//
// Финализировать можно только RUNNING стадию: terminal StageResult
// иммутабелен, повторная финализация — ErrInvalidState.
func (r *StageRepo) Finalize(ctx context.Context, result *domain.StageResult) error {
	query := `
		UPDATE stage_results
		SET status = $2, stdout = $3, stderr = $4, error = $5, finished_at = $6
		WHERE id = $1 AND status = 'RUNNING'
	`
	res, err := r.pool.Exec(ctx, query,
		result.ID,
		result.Status,
		result.Stdout,
		result.Stderr,
		nullString(result.Error),
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("finalize stage result: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: stage result %s is not RUNNING", ErrInvalidState, result.ID)
	}
	return nil
}

// ListByRunID возвращает результаты стадий run в порядке выполнения.
func (r *StageRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.StageResult, error) {
	query := `
		SELECT id, run_id, stage, status, stdout, stderr, error, started_at, finished_at
		FROM stage_results
		WHERE run_id = $1
		ORDER BY started_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list stage results: %w", err)
	}
	defer rows.Close()

	var results []domain.StageResult
	for rows.Next() {
		var sr domain.StageResult
		var srErr *string

		err := rows.Scan(
			&sr.ID, &sr.RunID, &sr.Stage, &sr.Status,
			&sr.Stdout, &sr.Stderr, &srErr,
			&sr.StartedAt, &sr.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		if srErr != nil {
			sr.Error = *srErr
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}
