package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

// --- Stage Tests ---

func TestPipeline_Order(t *testing.T) {
	want := []Stage{
		StageCheckout, StageIdentity, StageToolSetup,
		StageBuild, StageTest,
		StageAuth, StageVersionBump, StagePublish, StagePush,
	}

	got := Pipeline()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i, stage := range want {
		if got[i] != stage {
			t.Errorf("stage %d: expected %s, got %s", i, stage, got[i])
		}
	}
}

func TestPipeline_ReturnsCopy(t *testing.T) {
	stages := Pipeline()
	stages[0] = Stage("MUTATED")

	if Pipeline()[0] != StageCheckout {
		t.Error("Pipeline order must be immutable")
	}
}

func TestStage_FailureKind(t *testing.T) {
	tests := []struct {
		stage Stage
		want  FailureKind
	}{
		{StageCheckout, FailureKindSetup},
		{StageIdentity, FailureKindSetup},
		{StageToolSetup, FailureKindSetup},
		{StageBuild, FailureKindVerification},
		{StageTest, FailureKindVerification},
		{StageAuth, FailureKindAuth},
		{StageVersionBump, FailureKindPublish},
		{StagePublish, FailureKindPublish},
		{StagePush, FailureKindPublishedNotPushed},
	}

	for _, tt := range tests {
		if got := tt.stage.FailureKind(); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.stage, tt.want, got)
		}
	}
}

// --- Status Tests ---

func TestRunStatus_IsTerminal(t *testing.T) {
	terminal := []RunStatus{
		RunStatusSucceeded, RunStatusFailed,
		RunStatusPublishedNotPushed, RunStatusSuperseded,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	nonTerminal := []RunStatus{RunStatusPending, RunStatusRunning}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

// --- Trigger Tests ---

func TestTriggerEvent_AllowsRun(t *testing.T) {
	tests := []struct {
		name    string
		event   TriggerEvent
		branch  string
		allowed bool
	}{
		{"push to release branch", TriggerEvent{Kind: TriggerPush, Branch: "main"}, "main", true},
		{"push to other branch", TriggerEvent{Kind: TriggerPush, Branch: "feature/x"}, "main", false},
		{"manual dispatch", TriggerEvent{Kind: TriggerManual, Branch: "main"}, "main", true},
		{"manual ignores branch", TriggerEvent{Kind: TriggerManual, Branch: ""}, "main", true},
		{"unknown kind", TriggerEvent{Kind: TriggerKind("CRON"), Branch: "main"}, "main", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.AllowsRun(tt.branch); got != tt.allowed {
				t.Errorf("expected %v, got %v", tt.allowed, got)
			}
		})
	}
}

// --- Run Tests ---

func TestRun_MarkFailed(t *testing.T) {
	run := &Run{ID: uuid.New(), Status: RunStatusRunning}
	run.MarkFailed(StageTest, "tests failed")

	if run.Status != RunStatusFailed {
		t.Errorf("expected FAILED, got %s", run.Status)
	}
	if run.FailedStage != StageTest {
		t.Errorf("expected failed stage TEST, got %s", run.FailedStage)
	}
	if run.FailureKind != FailureKindVerification {
		t.Errorf("expected VERIFICATION kind, got %s", run.FailureKind)
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
}

func TestRun_MarkPublishedNotPushed(t *testing.T) {
	run := &Run{ID: uuid.New(), Status: RunStatusRunning, NewVersion: "1.2.4"}
	run.MarkPublishedNotPushed("push rejected")

	if run.Status != RunStatusPublishedNotPushed {
		t.Errorf("expected PUBLISHED_NOT_PUSHED, got %s", run.Status)
	}
	if run.FailureKind != FailureKindPublishedNotPushed {
		t.Errorf("expected distinguished failure kind, got %s", run.FailureKind)
	}
	if run.FailedStage != StagePush {
		t.Errorf("expected failed stage PUSH, got %s", run.FailedStage)
	}
	// The published version must stay recorded for remediation
	if run.NewVersion != "1.2.4" {
		t.Error("NewVersion must survive the failure")
	}
}

func TestRun_MarkSucceeded_ClearsFailure(t *testing.T) {
	run := &Run{ID: uuid.New()}
	run.MarkPublishedNotPushed("push rejected")
	run.MarkSucceeded()

	if run.Status != RunStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", run.Status)
	}
	if run.FailedStage != "" || run.FailureKind != "" || run.Error != "" {
		t.Error("failure fields should be cleared after resume-push success")
	}
}

// --- StageResult Tests ---

func TestStageResult_Lifecycle(t *testing.T) {
	runID := uuid.New()
	result := NewStageResult(runID, StageBuild)

	if result.Status != StageStatusRunning {
		t.Errorf("new result should be RUNNING, got %s", result.Status)
	}
	if result.RunID != runID {
		t.Error("RunID should be set")
	}

	result.MarkFailed("compiling...", "error: x undefined", "exit status 1")

	if result.Status != StageStatusFailed {
		t.Errorf("expected FAILED, got %s", result.Status)
	}
	if result.Stdout != "compiling..." || result.Stderr != "error: x undefined" {
		t.Error("captured output should be stored")
	}
	if result.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
	if result.Duration() < 0 {
		t.Error("duration should be non-negative")
	}
}

// --- Project Tests ---

func validProject() *Project {
	return &Project{
		ID:            uuid.New(),
		Name:          "watchr",
		RepoURL:       "https://git.example.com/acme/watchr.git",
		Branch:        "main",
		RegistryURL:   "https://registry.example.com",
		Package:       "watchr",
		InstallCmd:    "cargo install cargo-release",
		BuildCmd:      "cargo build --release",
		TestCmd:       "cargo test",
		GitName:       "release-bot",
		GitEmail:      "release-bot@example.com",
		CredentialRef: "REGISTRY_TOKEN",
	}
}

func TestProject_Validate(t *testing.T) {
	if err := validProject().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Project)
		want   error
	}{
		{"empty name", func(p *Project) { p.Name = "" }, ErrEmptyName},
		{"empty repo url", func(p *Project) { p.RepoURL = "" }, ErrEmptyRepoURL},
		{"empty branch", func(p *Project) { p.Branch = "" }, ErrEmptyBranch},
		{"empty registry", func(p *Project) { p.RegistryURL = "" }, ErrEmptyRegistry},
		{"empty package", func(p *Project) { p.Package = "" }, ErrEmptyRegistry},
		{"empty build cmd", func(p *Project) { p.BuildCmd = "" }, ErrEmptyCommand},
		{"empty test cmd", func(p *Project) { p.TestCmd = "" }, ErrEmptyCommand},
		{"empty identity", func(p *Project) { p.GitEmail = "" }, ErrEmptyIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProject()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestProject_ApplyDefaults(t *testing.T) {
	p := &Project{}
	p.ApplyDefaults()

	if p.Remote != DefaultRemote {
		t.Errorf("expected remote %q, got %q", DefaultRemote, p.Remote)
	}
	if p.RetentionDays != DefaultRetentionDays {
		t.Errorf("expected retention %d, got %d", DefaultRetentionDays, p.RetentionDays)
	}
}

// --- Version Tests ---

func TestNextPatch(t *testing.T) {
	tests := []struct {
		prev string
		want string
	}{
		{"1.2.3", "1.2.4"},
		{"0.1.0", "0.1.1"},
		{"2.0.9", "2.0.10"},
	}

	for _, tt := range tests {
		got, err := NextPatch(tt.prev)
		if err != nil {
			t.Fatalf("NextPatch(%q): unexpected error: %v", tt.prev, err)
		}
		if got != tt.want {
			t.Errorf("NextPatch(%q): expected %q, got %q", tt.prev, tt.want, got)
		}
	}
}

func TestNextPatch_Invalid(t *testing.T) {
	for _, bad := range []string{"", "1.2", "v1.2.3", "abc"} {
		if _, err := NextPatch(bad); !errors.Is(err, ErrInvalidVersion) {
			t.Errorf("NextPatch(%q): expected ErrInvalidVersion, got %v", bad, err)
		}
	}
}

func TestTagName(t *testing.T) {
	if got := TagName("1.2.4"); got != "v1.2.4" {
		t.Errorf("expected v1.2.4, got %s", got)
	}
}
