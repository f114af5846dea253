package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relmanhq/relman/internal/domain"
	"github.com/relmanhq/relman/internal/registry"
	"github.com/relmanhq/relman/internal/repo"
	"github.com/relmanhq/relman/internal/secrets"
	"github.com/relmanhq/relman/internal/vcs"
)

// Workspace — изолированная рабочая копия исходников одного run.
type Workspace interface {
	// Dir — директория, в которой выполняются команды инструментария.
	Dir() string

	// SetIdentity задаёт идентичность для коммитов этого run.
	SetIdentity(name, email string) error

	// CommitRelease локально коммитит и тегирует новую версию.
	CommitRelease(ctx context.Context, version string) (string, error)

	// PushRelease отправляет release-коммит и тег на remote.
	PushRelease(ctx context.Context, remote, branch, version string) error
}

// SourceControl — коллаборатор source control (checkout, workspace lifecycle).
type SourceControl interface {
	Checkout(ctx context.Context, runID uuid.UUID, repoURL, branch string) (Workspace, error)

	// Open переоткрывает сохранённый workspace (ремедиация push'а).
	Open(runID uuid.UUID) (Workspace, error)

	Cleanup(runID uuid.UUID) error
}

// Registry — коллаборатор package registry. registryURL берётся из
// конфигурации проекта: разные проекты публикуются в разные реестры.
type Registry interface {
	Login(ctx context.Context, registryURL string, cred *secrets.Credential) error
	LastPublished(ctx context.Context, registryURL, pkg string) (string, error)
	Publish(ctx context.Context, registryURL, pkg, version string, cred *secrets.Credential) error
}

// RunStore — операции над runs, нужные оркестратору.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
	ListPending(ctx context.Context, limit int) ([]domain.Run, error)
	NewestPending(ctx context.Context, projectID uuid.UUID) (*domain.Run, error)
	SupersedePending(ctx context.Context, projectID, exceptID uuid.UUID) (int, error)
}

// ProjectStore — операции над проектами, нужные оркестратору.
type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
}

// StageStore — персистентность результатов стадий.
type StageStore interface {
	Create(ctx context.Context, result *domain.StageResult) error
	Finalize(ctx context.Context, result *domain.StageResult) error
}

// Unlocker освобождает захваченный branch lock.
type Unlocker interface {
	Release(ctx context.Context) error
}

// Locker — эксклюзивный lock на (проект, ветка).
// Acquire не ждёт: (nil, false, nil) означает, что lock занят.
type Locker interface {
	Acquire(ctx context.Context, projectID uuid.UUID, branch string) (Unlocker, bool, error)
}

// --- Адаптеры продакшн-реализаций ---

// gitSourceControl адаптирует *vcs.Git к интерфейсу SourceControl.
type gitSourceControl struct {
	g *vcs.Git
}

// NewGitSourceControl оборачивает vcs.Git в SourceControl.
func NewGitSourceControl(g *vcs.Git) SourceControl {
	return gitSourceControl{g: g}
}

func (s gitSourceControl) Checkout(ctx context.Context, runID uuid.UUID, repoURL, branch string) (Workspace, error) {
	return s.g.Checkout(ctx, runID, repoURL, branch)
}

func (s gitSourceControl) Open(runID uuid.UUID) (Workspace, error) {
	return s.g.Open(runID)
}

func (s gitSourceControl) Cleanup(runID uuid.UUID) error {
	return s.g.Cleanup(runID)
}

// httpRegistry адаптирует registry.Client к интерфейсу Registry,
// создавая по клиенту на каждый встреченный registryURL.
type httpRegistry struct {
	mu      sync.Mutex
	clients map[string]*registry.Client
	logger  *slog.Logger
}

// NewHTTPRegistry создаёт Registry поверх HTTP-клиентов реестра.
func NewHTTPRegistry(logger *slog.Logger) Registry {
	return &httpRegistry{
		clients: make(map[string]*registry.Client),
		logger:  logger,
	}
}

func (r *httpRegistry) client(registryURL string) *registry.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[registryURL]
	if !ok {
		c = registry.NewClient(registryURL, r.logger)
		r.clients[registryURL] = c
	}
	return c
}

func (r *httpRegistry) Login(ctx context.Context, registryURL string, cred *secrets.Credential) error {
	return r.client(registryURL).Login(ctx, cred)
}

func (r *httpRegistry) LastPublished(ctx context.Context, registryURL, pkg string) (string, error) {
	return r.client(registryURL).LastPublished(ctx, pkg)
}

func (r *httpRegistry) Publish(ctx context.Context, registryURL, pkg, version string, cred *secrets.Credential) error {
	return r.client(registryURL).Publish(ctx, pkg, version, cred)
}

// pgLocker — Locker на postgres advisory locks.
type pgLocker struct {
	pool *pgxpool.Pool
}

// NewBranchLocker создаёт Locker поверх пула postgres.
func NewBranchLocker(pool *pgxpool.Pool) Locker {
	return pgLocker{pool: pool}
}

func (l pgLocker) Acquire(ctx context.Context, projectID uuid.UUID, branch string) (Unlocker, bool, error) {
	lock, ok, err := repo.AcquireBranchLock(ctx, l.pool, projectID, branch)
	if err != nil || !ok {
		return nil, false, err
	}
	return lock, true, nil
}
