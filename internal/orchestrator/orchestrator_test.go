package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relmanhq/relman/internal/domain"
	"github.com/relmanhq/relman/internal/mq"
	"github.com/relmanhq/relman/internal/registry"
	"github.com/relmanhq/relman/internal/repo"
	"github.com/relmanhq/relman/internal/secrets"
	"github.com/relmanhq/relman/internal/toolchain"
)

// --- In-memory fakes ---

type memRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]domain.Run
}

func newMemRuns() *memRuns {
	return &memRuns{runs: make(map[uuid.UUID]domain.Run)}
}

func (m *memRuns) put(run *domain.Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
}

func (m *memRuns) get(id uuid.UUID) domain.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[id]
}

func (m *memRuns) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &run, nil
}

func (m *memRuns) Update(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		return repo.ErrNotFound
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *memRuns) ListPending(_ context.Context, limit int) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []domain.Run
	for _, run := range m.runs {
		if run.Status == domain.RunStatusPending {
			pending = append(pending, run)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (m *memRuns) NewestPending(_ context.Context, projectID uuid.UUID) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var newest *domain.Run
	for _, run := range m.runs {
		if run.ProjectID != projectID || run.Status != domain.RunStatusPending {
			continue
		}
		run := run
		if newest == nil || run.CreatedAt.After(newest.CreatedAt) {
			newest = &run
		}
	}
	if newest == nil {
		return nil, repo.ErrNotFound
	}
	return newest, nil
}

func (m *memRuns) SupersedePending(_ context.Context, projectID, exceptID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, run := range m.runs {
		if run.ProjectID == projectID && id != exceptID && run.Status == domain.RunStatusPending {
			run.MarkSuperseded()
			m.runs[id] = run
			count++
		}
	}
	return count, nil
}

type memProjects struct {
	projects map[uuid.UUID]*domain.Project
}

func (m *memProjects) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return p, nil
}

type memStages struct {
	mu      sync.Mutex
	results []domain.StageResult
}

func (m *memStages) Create(_ context.Context, result *domain.StageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *result)
	return nil
}

func (m *memStages) Finalize(_ context.Context, result *domain.StageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.results {
		if m.results[i].ID == result.ID {
			m.results[i] = *result
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m *memStages) forRun(runID uuid.UUID) []domain.StageResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.StageResult
	for _, r := range m.results {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out
}

type fakeLock struct {
	locker *fakeLocker
}

func (l *fakeLock) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	l.locker.released++
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	busy     bool
	acquired int
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, _ uuid.UUID, _ string) (Unlocker, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy {
		return nil, false, nil
	}
	l.acquired++
	return &fakeLock{locker: l}, true, nil
}

type fakeWorkspace struct {
	identityName  string
	identityEmail string
	committed     []string
	pushed        []string
	commitErr     error
	pushErr       error
}

func (w *fakeWorkspace) Dir() string { return "/work/fake" }

func (w *fakeWorkspace) SetIdentity(name, email string) error {
	if name == "" || email == "" {
		return errors.New("identity not configured")
	}
	w.identityName = name
	w.identityEmail = email
	return nil
}

func (w *fakeWorkspace) CommitRelease(_ context.Context, version string) (string, error) {
	if w.commitErr != nil {
		return "", w.commitErr
	}
	w.committed = append(w.committed, version)
	return "deadbeef", nil
}

func (w *fakeWorkspace) PushRelease(_ context.Context, _, _, version string) error {
	if w.pushErr != nil {
		return w.pushErr
	}
	w.pushed = append(w.pushed, version)
	return nil
}

type fakeSource struct {
	ws          *fakeWorkspace
	checkoutErr error
	openErr     error
	checkouts   int
	cleaned     []uuid.UUID
}

func (s *fakeSource) Checkout(_ context.Context, _ uuid.UUID, _, _ string) (Workspace, error) {
	if s.checkoutErr != nil {
		return nil, s.checkoutErr
	}
	s.checkouts++
	return s.ws, nil
}

func (s *fakeSource) Open(_ uuid.UUID) (Workspace, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.ws, nil
}

func (s *fakeSource) Cleanup(runID uuid.UUID) error {
	s.cleaned = append(s.cleaned, runID)
	return nil
}

type fakeRunner struct {
	failOn   map[string]error
	commands []string
}

func (r *fakeRunner) Run(ctx context.Context, _ string, command string) (*toolchain.Result, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.commands = append(r.commands, command)
	if err := r.failOn[command]; err != nil {
		return &toolchain.Result{Stderr: "boom"}, err
	}
	return &toolchain.Result{Stdout: "ok"}, nil
}

type fakeRegistry struct {
	last       string // "" — пакет никогда не публиковался
	loginErr   error
	publishErr error
	logins     int
	published  []string
}

func (r *fakeRegistry) Login(_ context.Context, _ string, cred *secrets.Credential) error {
	if _, err := cred.Value(); err != nil {
		return err
	}
	if r.loginErr != nil {
		return r.loginErr
	}
	r.logins++
	return nil
}

func (r *fakeRegistry) LastPublished(_ context.Context, _ string, pkg string) (string, error) {
	if r.last == "" {
		return "", fmt.Errorf("%w: %s", registry.ErrPackageNotFound, pkg)
	}
	return r.last, nil
}

func (r *fakeRegistry) Publish(_ context.Context, _ string, pkg, version string, cred *secrets.Credential) error {
	if _, err := cred.Value(); err != nil {
		return err
	}
	if r.publishErr != nil {
		return r.publishErr
	}
	if version == r.last {
		return fmt.Errorf("%w: %s@%s", registry.ErrVersionExists, pkg, version)
	}
	for _, v := range r.published {
		if v == version {
			return fmt.Errorf("%w: %s@%s", registry.ErrVersionExists, pkg, version)
		}
	}
	r.published = append(r.published, version)
	return nil
}

// trackingProvider выдаёт credentials и запоминает их для проверки Clear.
type trackingProvider struct {
	value  string
	issued []*secrets.Credential
}

func (p *trackingProvider) Resolve(_ context.Context, ref string) (*secrets.Credential, error) {
	if ref == "" {
		return nil, secrets.ErrEmptyRef
	}
	cred := secrets.New(p.value)
	p.issued = append(p.issued, cred)
	return cred, nil
}

// --- Fixture ---

type fixture struct {
	o        *Orchestrator
	runs     *memRuns
	stages   *memStages
	locker   *fakeLocker
	source   *fakeSource
	ws       *fakeWorkspace
	runner   *fakeRunner
	registry *fakeRegistry
	creds    *trackingProvider
	project  *domain.Project
}

func newFixture() *fixture {
	project := &domain.Project{
		ID:            uuid.New(),
		Name:          "watchkit",
		RepoURL:       "https://git.test/watchkit.git",
		Branch:        "main",
		Remote:        "origin",
		RegistryURL:   "https://registry.test",
		Package:       "watchkit",
		InstallCmd:    "tool install",
		BuildCmd:      "tool build",
		TestCmd:       "tool test",
		GitName:       "Release Bot",
		GitEmail:      "bot@relman.test",
		CredentialRef: "REGISTRY_TOKEN",
		RetentionDays: 90,
		IsActive:      true,
	}

	f := &fixture{
		runs:     newMemRuns(),
		stages:   &memStages{},
		locker:   &fakeLocker{},
		ws:       &fakeWorkspace{},
		runner:   &fakeRunner{failOn: map[string]error{}},
		registry: &fakeRegistry{last: "1.2.3"},
		creds:    &trackingProvider{value: "token-1"},
		project:  project,
	}
	f.source = &fakeSource{ws: f.ws}

	f.o = New(Config{
		Runs:          f.runs,
		Projects:      &memProjects{projects: map[uuid.UUID]*domain.Project{project.ID: project}},
		Stages:        f.stages,
		Locker:        f.locker,
		SourceControl: f.source,
		Runner:        f.runner,
		Registry:      f.registry,
		Credentials:   f.creds,
		Logger:        slog.New(slog.DiscardHandler),
	})
	return f
}

func (f *fixture) addPendingRun(createdAt time.Time) *domain.Run {
	run := &domain.Run{
		ID:        uuid.New(),
		ProjectID: f.project.ID,
		Trigger: domain.TriggerEvent{
			Kind:   domain.TriggerPush,
			Branch: "main",
			Commit: "abc123",
		},
		Status:    domain.RunStatusPending,
		CreatedAt: createdAt,
	}
	f.runs.put(run)
	return run
}

// --- Pipeline tests ---

func TestSuccessfulRun(t *testing.T) {
	f := newFixture()
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED (error: %s)", got.Status, got.Error)
	}
	if got.PrevVersion != "1.2.3" || got.NewVersion != "1.2.4" {
		t.Errorf("versions = %s → %s, want 1.2.3 → 1.2.4", got.PrevVersion, got.NewVersion)
	}

	// Все девять стадий записаны в порядке pipeline и успешны
	results := f.stages.forRun(run.ID)
	wantStages := domain.Pipeline()
	if len(results) != len(wantStages) {
		t.Fatalf("stage results = %d, want %d", len(results), len(wantStages))
	}
	for i, r := range results {
		if r.Stage != wantStages[i] {
			t.Errorf("stage[%d] = %s, want %s", i, r.Stage, wantStages[i])
		}
		if r.Status != domain.StageStatusSucceeded {
			t.Errorf("stage %s status = %s, want SUCCEEDED", r.Stage, r.Status)
		}
	}

	if len(f.registry.published) != 1 || f.registry.published[0] != "1.2.4" {
		t.Errorf("published = %v, want [1.2.4]", f.registry.published)
	}
	if len(f.ws.pushed) != 1 || f.ws.pushed[0] != "1.2.4" {
		t.Errorf("pushed = %v, want [1.2.4]", f.ws.pushed)
	}
	if f.ws.identityName != "Release Bot" {
		t.Errorf("commit identity = %q, want project identity", f.ws.identityName)
	}

	// Окно credential закрыто
	if len(f.creds.issued) != 1 || !f.creds.issued[0].IsCleared() {
		t.Error("credential must be cleared after the run")
	}

	// Workspace убран, lock освобождён
	if len(f.source.cleaned) != 1 {
		t.Errorf("cleanups = %d, want 1", len(f.source.cleaned))
	}
	if f.locker.released != f.locker.acquired {
		t.Errorf("lock released %d times, acquired %d", f.locker.released, f.locker.acquired)
	}
}

func TestFirstPublishUsesFirstVersion(t *testing.T) {
	f := newFixture()
	f.registry.last = "" // package never published
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED", got.Status)
	}
	if got.PrevVersion != "" || got.NewVersion != domain.FirstVersion {
		t.Errorf("versions = %q → %q, want \"\" → %s", got.PrevVersion, got.NewVersion, domain.FirstVersion)
	}
}

func TestTestFailureGatesPublication(t *testing.T) {
	f := newFixture()
	f.runner.failOn["tool test"] = errors.New("3 tests failed")
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}
	if got.FailedStage != domain.StageTest {
		t.Errorf("failed stage = %s, want TEST", got.FailedStage)
	}
	if got.FailureKind != domain.FailureKindVerification {
		t.Errorf("failure kind = %s, want VERIFICATION", got.FailureKind)
	}

	// Gate: никаких внешних мутаций после провала верификации
	if f.registry.logins != 0 {
		t.Error("registry login must not happen after verification failure")
	}
	if len(f.registry.published) != 0 {
		t.Error("nothing must be published after verification failure")
	}
	if len(f.ws.committed) != 0 || len(f.ws.pushed) != 0 {
		t.Error("no commit or push after verification failure")
	}
	if got.NewVersion != "" {
		t.Errorf("no version must be computed, got %q", got.NewVersion)
	}

	// Стадии после TEST не запускались
	results := f.stages.forRun(run.ID)
	if len(results) != 5 {
		t.Fatalf("stage results = %d, want 5 (through TEST)", len(results))
	}
	last := results[len(results)-1]
	if last.Stage != domain.StageTest || last.Status != domain.StageStatusFailed {
		t.Errorf("last stage = %s/%s, want TEST/FAILED", last.Stage, last.Status)
	}
	if last.Stderr != "boom" {
		t.Errorf("stage stderr = %q, want diagnostic output", last.Stderr)
	}
}

func TestAuthFailure(t *testing.T) {
	f := newFixture()
	f.registry.loginErr = registry.ErrUnauthorized
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusFailed || got.FailedStage != domain.StageAuth {
		t.Fatalf("run = %s at %s, want FAILED at AUTH", got.Status, got.FailedStage)
	}
	if got.FailureKind != domain.FailureKindAuth {
		t.Errorf("failure kind = %s, want AUTH", got.FailureKind)
	}
	if len(f.registry.published) != 0 || len(f.ws.committed) != 0 {
		t.Error("no publish or version commit after auth failure")
	}
	// Credential занулён несмотря на провал
	if len(f.creds.issued) != 1 || !f.creds.issued[0].IsCleared() {
		t.Error("credential must be cleared on the failure path")
	}
}

func TestDuplicateVersionFailsLoudly(t *testing.T) {
	f := newFixture()
	// Реестр ответит 409 на любую публикацию
	f.registry.publishErr = fmt.Errorf("%w: watchkit@1.2.4", registry.ErrVersionExists)
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusFailed || got.FailedStage != domain.StagePublish {
		t.Fatalf("run = %s at %s, want FAILED at PUBLISH", got.Status, got.FailedStage)
	}
	if got.FailureKind != domain.FailureKindPublish {
		t.Errorf("failure kind = %s, want PUBLISH", got.FailureKind)
	}
	if len(f.ws.pushed) != 0 {
		t.Error("push must not run after publish failure")
	}
}

func TestPushFailureIsDistinguished(t *testing.T) {
	f := newFixture()
	f.ws.pushErr = errors.New("remote rejected")
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusPublishedNotPushed {
		t.Fatalf("status = %s, want PUBLISHED_NOT_PUSHED", got.Status)
	}
	if got.FailureKind != domain.FailureKindPublishedNotPushed {
		t.Errorf("failure kind = %s, want PUBLISHED_NOT_PUSHED", got.FailureKind)
	}
	// Версия опубликована и должна остаться видимой для ремедиации
	if got.NewVersion != "1.2.4" {
		t.Errorf("new version = %q, want 1.2.4", got.NewVersion)
	}
	if len(f.registry.published) != 1 {
		t.Errorf("published = %v, want exactly one version", f.registry.published)
	}
	// Workspace сохраняется для resume-push
	if len(f.source.cleaned) != 0 {
		t.Error("workspace must be kept for push remediation")
	}
}

func TestResumePush(t *testing.T) {
	f := newFixture()
	f.ws.pushErr = errors.New("remote rejected")
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}
	if f.runs.get(run.ID).Status != domain.RunStatusPublishedNotPushed {
		t.Fatal("setup: run must be PUBLISHED_NOT_PUSHED")
	}

	// Remote починили — повторяем push
	f.ws.pushErr = nil
	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("resume processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED after resume", got.Status)
	}
	// Публикация НЕ повторялась
	if len(f.registry.published) != 1 {
		t.Errorf("published = %v, want exactly one version", f.registry.published)
	}
	if len(f.ws.pushed) != 1 || f.ws.pushed[0] != "1.2.4" {
		t.Errorf("pushed = %v, want [1.2.4]", f.ws.pushed)
	}
	// Checkout не выполнялся заново
	if f.source.checkouts != 1 {
		t.Errorf("checkouts = %d, want 1", f.source.checkouts)
	}
	// Теперь workspace можно убрать
	if len(f.source.cleaned) != 1 {
		t.Errorf("cleanups = %d, want 1 after successful resume", len(f.source.cleaned))
	}

	// Попытки push записаны отдельными стадиями
	pushAttempts := 0
	for _, r := range f.stages.forRun(run.ID) {
		if r.Stage == domain.StagePush {
			pushAttempts++
		}
	}
	if pushAttempts != 2 {
		t.Errorf("push attempts recorded = %d, want 2", pushAttempts)
	}
}

func TestResumePushMissingWorkspace(t *testing.T) {
	f := newFixture()
	f.ws.pushErr = errors.New("remote rejected")
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	f.ws.pushErr = nil
	f.source.openErr = errors.New("workspace not found")

	// Провал ремедиации не отдаётся наверх: redelivery его не починит
	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("resume processRun() error: %v", err)
	}

	// Run остаётся в ремедиируемом состоянии
	if got := f.runs.get(run.ID); got.Status != domain.RunStatusPublishedNotPushed {
		t.Errorf("status = %s, want PUBLISHED_NOT_PUSHED", got.Status)
	}
}

func TestRepeatedPushFailureStaysRemediable(t *testing.T) {
	f := newFixture()
	f.ws.pushErr = errors.New("remote rejected")
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	// Remote всё ещё лежит: повторный push тоже падает, но без ошибки
	// наверх — иначе consumer гонял бы retry по кругу
	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("resume processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusPublishedNotPushed {
		t.Fatalf("status = %s, want PUBLISHED_NOT_PUSHED", got.Status)
	}
	// Обе попытки push записаны, публикация не повторялась
	pushAttempts := 0
	for _, r := range f.stages.forRun(run.ID) {
		if r.Stage == domain.StagePush {
			pushAttempts++
		}
	}
	if pushAttempts != 2 {
		t.Errorf("push attempts recorded = %d, want 2", pushAttempts)
	}
	if len(f.registry.published) != 1 {
		t.Errorf("published = %v, want exactly one version", f.registry.published)
	}
	// Workspace всё ещё нужен следующей попытке
	if len(f.source.cleaned) != 0 {
		t.Error("workspace must be kept while push remains unremediated")
	}
}

func TestResumeOnlyForPublishedNotPushed(t *testing.T) {
	f := newFixture()
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	// SUCCEEDED run нельзя ни перезапустить, ни "дожать"
	err := f.o.processRun(context.Background(), run.ID)
	if !errors.Is(err, ErrRunNotPending) {
		t.Errorf("expected ErrRunNotPending for terminal run, got %v", err)
	}
}

func TestBusyBranchKeepsRunPending(t *testing.T) {
	f := newFixture()
	f.locker.busy = true
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	// Run остаётся PENDING до следующего poll — семантика очереди
	if got := f.runs.get(run.ID); got.Status != domain.RunStatusPending {
		t.Errorf("status = %s, want PENDING while branch is busy", got.Status)
	}
	if len(f.stages.forRun(run.ID)) != 0 {
		t.Error("no stages must run while branch lock is busy")
	}
}

func TestNewerRunSupersedesOlder(t *testing.T) {
	f := newFixture()
	older := f.addPendingRun(time.Now().Add(-time.Minute))
	newer := f.addPendingRun(time.Now())

	// Обработка старого run: он уже вытеснен более новым триггером
	if err := f.o.processRun(context.Background(), older.ID); err != nil {
		t.Fatalf("processRun(older) error: %v", err)
	}
	if got := f.runs.get(older.ID); got.Status != domain.RunStatusSuperseded {
		t.Fatalf("older run status = %s, want SUPERSEDED", got.Status)
	}

	if err := f.o.processRun(context.Background(), newer.ID); err != nil {
		t.Fatalf("processRun(newer) error: %v", err)
	}
	if got := f.runs.get(newer.ID); got.Status != domain.RunStatusSucceeded {
		t.Errorf("newer run status = %s, want SUCCEEDED", got.Status)
	}

	// Burst пушей публикует ровно одну версию
	if len(f.registry.published) != 1 {
		t.Errorf("published = %v, want single version", f.registry.published)
	}
}

func TestInactiveProjectFailsRun(t *testing.T) {
	f := newFixture()
	f.project.IsActive = false
	run := f.addPendingRun(time.Now())

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}
	if got.FailureKind != domain.FailureKindSetup {
		t.Errorf("failure kind = %s, want SETUP", got.FailureKind)
	}
	if f.source.checkouts != 0 {
		t.Error("no checkout for inactive project")
	}
}

func TestCancellationMidStageFailsRun(t *testing.T) {
	f := newFixture()
	run := f.addPendingRun(time.Now())

	// Host-imposed cancel посреди TEST: runner возвращает context.Canceled
	f.runner.failOn["tool test"] = context.Canceled

	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	got := f.runs.get(run.ID)
	if got.Status != domain.RunStatusFailed || got.FailedStage != domain.StageTest {
		t.Fatalf("run = %s at %s, want FAILED at TEST", got.Status, got.FailedStage)
	}
	// Терминальный статус персистится, downstream-стадии не выполнялись
	if len(f.registry.published) != 0 || len(f.ws.pushed) != 0 {
		t.Error("no external mutation after interrupted verification")
	}
}

func TestPollingOnlyModeFinishesRuns(t *testing.T) {
	f := newFixture()

	// Polling-only режим: RabbitMQ недоступен, и в конфиг попадает
	// нулевой *mq.Publisher. В интерфейсном поле он не nil —
	// finishRun не должен на нём падать.
	var publisher *mq.Publisher
	f.o = New(Config{
		Runs:          f.runs,
		Projects:      &memProjects{projects: map[uuid.UUID]*domain.Project{f.project.ID: f.project}},
		Stages:        f.stages,
		Locker:        f.locker,
		SourceControl: f.source,
		Runner:        f.runner,
		Registry:      f.registry,
		Credentials:   f.creds,
		Publisher:     publisher,
		Logger:        slog.New(slog.DiscardHandler),
	})

	run := f.addPendingRun(time.Now())
	if err := f.o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("processRun() error: %v", err)
	}

	if got := f.runs.get(run.ID); got.Status != domain.RunStatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED without a publisher", got.Status)
	}
}

func TestUnknownRun(t *testing.T) {
	f := newFixture()

	err := f.o.processRun(context.Background(), uuid.New())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// --- RunState tests ---

func TestRunStateStats(t *testing.T) {
	f := newFixture()
	run := f.addPendingRun(time.Now())
	got := f.runs.get(run.ID)

	state := NewRunState(&got, f.project)
	state.SetStage(domain.StageBuild)

	stats := state.Stats()
	if stats.RunID != run.ID {
		t.Errorf("stats run id = %s, want %s", stats.RunID, run.ID)
	}
	if stats.Stage != domain.StageBuild {
		t.Errorf("stats stage = %s, want BUILD", stats.Stage)
	}
	if stats.Branch != "main" {
		t.Errorf("stats branch = %q, want main", stats.Branch)
	}
}
