package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — декларативная схема relman.
//
// Все statements идемпотентны (IF NOT EXISTS) — Migrate безопасно
// вызывать при каждом старте любого бинарника.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id             UUID PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    repo_url       TEXT NOT NULL,
    branch         TEXT NOT NULL,
    remote         TEXT NOT NULL DEFAULT 'origin',
    registry_url   TEXT NOT NULL,
    package        TEXT NOT NULL,
    install_cmd    TEXT NOT NULL,
    build_cmd      TEXT NOT NULL,
    test_cmd       TEXT NOT NULL,
    git_name       TEXT NOT NULL,
    git_email      TEXT NOT NULL,
    credential_ref TEXT NOT NULL DEFAULT '',
    retention_days INT  NOT NULL DEFAULT 90,
    is_active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
    id             UUID PRIMARY KEY,
    project_id     UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    trigger_kind   TEXT NOT NULL,
    trigger_branch TEXT NOT NULL,
    trigger_commit TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL,
    failed_stage   TEXT,
    failure_kind   TEXT,
    prev_version   TEXT,
    new_version    TEXT,
    started_at     TIMESTAMPTZ,
    finished_at    TIMESTAMPTZ,
    error          TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_project ON runs (project_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status  ON runs (status, created_at);

CREATE TABLE IF NOT EXISTS stage_results (
    id          UUID PRIMARY KEY,
    run_id      UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    stage       TEXT NOT NULL,
    status      TEXT NOT NULL,
    stdout      TEXT NOT NULL DEFAULT '',
    stderr      TEXT NOT NULL DEFAULT '',
    error       TEXT,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_stage_results_run ON stage_results (run_id, started_at);
`

// Migrate применяет схему к БД.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
