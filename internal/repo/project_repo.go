package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relmanhq/relman/internal/domain"
)

// projectColumns — список колонок для SELECT.
const projectColumns = `id, name, repo_url, branch, remote, registry_url, package,
       install_cmd, build_cmd, test_cmd, git_name, git_email, credential_ref,
       retention_days, is_active, created_at, updated_at`

// ProjectRepo — репозиторий для работы с проектами.
type ProjectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepo создаёт новый ProjectRepo.
func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

// Create создаёт новый проект.
func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `
		INSERT INTO projects (id, name, repo_url, branch, remote, registry_url, package,
		                      install_cmd, build_cmd, test_cmd, git_name, git_email,
		                      credential_ref, retention_days, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.RepoURL, p.Branch, p.Remote, p.RegistryURL, p.Package,
		p.InstallCmd, p.BuildCmd, p.TestCmd, p.GitName, p.GitEmail,
		p.CredentialRef, p.RetentionDays, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: project %s", ErrAlreadyExists, p.Name)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID возвращает проект по ID.
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает проект по имени.
// Используется push-webhook'ом, который знает только имя репозитория.
func (r *ProjectRepo) GetByName(ctx context.Context, name string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE name = $1`
	return scanProject(r.pool.QueryRow(ctx, query, name))
}

// List возвращает все проекты.
func (r *ProjectRepo) List(ctx context.Context) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProjectFromRows(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// Update обновляет проект.
func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	p.UpdatedAt = time.Now()

	query := `
		UPDATE projects
		SET name = $2, repo_url = $3, branch = $4, remote = $5, registry_url = $6,
		    package = $7, install_cmd = $8, build_cmd = $9, test_cmd = $10,
		    git_name = $11, git_email = $12, credential_ref = $13,
		    retention_days = $14, is_active = $15, updated_at = $16
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.RepoURL, p.Branch, p.Remote, p.RegistryURL,
		p.Package, p.InstallCmd, p.BuildCmd, p.TestCmd,
		p.GitName, p.GitEmail, p.CredentialRef,
		p.RetentionDays, p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет проект вместе с его runs (ON DELETE CASCADE).
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// scanProject сканирует одну строку в Project.
func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.Name, &p.RepoURL, &p.Branch, &p.Remote, &p.RegistryURL, &p.Package,
		&p.InstallCmd, &p.BuildCmd, &p.TestCmd, &p.GitName, &p.GitEmail, &p.CredentialRef,
		&p.RetentionDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

// scanProjectFromRows сканирует строку из rows в Project.
func scanProjectFromRows(rows pgx.Rows) (*domain.Project, error) {
	var p domain.Project
	err := rows.Scan(
		&p.ID, &p.Name, &p.RepoURL, &p.Branch, &p.Remote, &p.RegistryURL, &p.Package,
		&p.InstallCmd, &p.BuildCmd, &p.TestCmd, &p.GitName, &p.GitEmail, &p.CredentialRef,
		&p.RetentionDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

// isUniqueViolation проверяет ошибку на конфликт уникальности (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
