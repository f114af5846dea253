package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"
)

// Ошибки vcs.
var (
	// ErrWorkspaceMissing — workspace run не найден на диске
	// (например, оркестратор был перезапущен с чистым work root).
	ErrWorkspaceMissing = errors.New("vcs: workspace not found")

	// ErrNoIdentity — коммит запрошен до настройки идентичности.
	ErrNoIdentity = errors.New("vcs: commit identity not configured")
)

// DefaultWorkRoot — директория workspace'ов по умолчанию.
const DefaultWorkRoot = "/var/lib/relman/work"

// Config — конфигурация git-коллаборатора.
type Config struct {
	// WorkRoot — корень, под которым создаются workspace'ы runs.
	WorkRoot string

	// Token — токен для https remotes (clone и push).
	// Пустой токен — анонимный доступ.
	Token string
}

// Git управляет workspace'ами runs поверх go-git.
type Git struct {
	workRoot string
	token    string
	logger   *slog.Logger
}

// New создаёт Git-коллаборатор.
func New(cfg Config, logger *slog.Logger) *Git {
	workRoot := cfg.WorkRoot
	if workRoot == "" {
		workRoot = DefaultWorkRoot
	}
	return &Git{
		workRoot: workRoot,
		token:    cfg.Token,
		logger:   logger,
	}
}

// Checkout клонирует release-ветку репозитория в workspace run.
func (g *Git) Checkout(ctx context.Context, runID uuid.UUID, repoURL, branch string) (*Workspace, error) {
	dir := g.dir(runID)

	if err := os.MkdirAll(g.workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil {
		// Недоклонированный workspace не должен оставаться на диске
		os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s (branch %s): %w", repoURL, branch, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	g.logger.Debug("workspace created", "dir", dir, "branch", branch)

	return &Workspace{
		dir:      dir,
		repo:     repo,
		worktree: worktree,
		auth:     g.auth(),
	}, nil
}

// Open переоткрывает существующий workspace run.
// Используется ремедиацией push'а после PUBLISHED_NOT_PUSHED.
func (g *Git) Open(runID uuid.UUID) (*Workspace, error) {
	dir := g.dir(runID)

	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: run %s", ErrWorkspaceMissing, runID)
		}
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	return &Workspace{
		dir:      dir,
		repo:     repo,
		worktree: worktree,
		auth:     g.auth(),
	}, nil
}

// Cleanup удаляет workspace run с диска.
func (g *Git) Cleanup(runID uuid.UUID) error {
	if err := os.RemoveAll(g.dir(runID)); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// dir возвращает директорию workspace для run.
func (g *Git) dir(runID uuid.UUID) string {
	return filepath.Join(g.workRoot, runID.String())
}

// auth возвращает метод аутентификации для remote-операций.
func (g *Git) auth() transport.AuthMethod {
	if g.token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: "token", // для token-auth имя пользователя не значимо
		Password: g.token,
	}
}

// pushRefSpecs — refspecs для публикации release-коммита и тега.
func pushRefSpecs(branch, tag string) []config.RefSpec {
	return []config.RefSpec{
		config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)),
		config.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", tag, tag)),
	}
}
