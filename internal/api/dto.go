package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/relmanhq/relman/internal/domain"
)

// Project DTOs

// CreateProjectRequest — запрос на создание проекта.
type CreateProjectRequest struct {
	Name          string `json:"name"`
	RepoURL       string `json:"repo_url"`
	Branch        string `json:"branch"`
	Remote        string `json:"remote,omitempty"`
	RegistryURL   string `json:"registry_url"`
	Package       string `json:"package"`
	InstallCmd    string `json:"install_cmd"`
	BuildCmd      string `json:"build_cmd"`
	TestCmd       string `json:"test_cmd"`
	GitName       string `json:"git_name"`
	GitEmail      string `json:"git_email"`
	CredentialRef string `json:"credential_ref"`
	RetentionDays int    `json:"retention_days,omitempty"`
}

// UpdateProjectRequest — запрос на обновление проекта.
// Nil-поля не меняются.
type UpdateProjectRequest struct {
	Name          *string `json:"name,omitempty"`
	RepoURL       *string `json:"repo_url,omitempty"`
	Branch        *string `json:"branch,omitempty"`
	Remote        *string `json:"remote,omitempty"`
	RegistryURL   *string `json:"registry_url,omitempty"`
	Package       *string `json:"package,omitempty"`
	InstallCmd    *string `json:"install_cmd,omitempty"`
	BuildCmd      *string `json:"build_cmd,omitempty"`
	TestCmd       *string `json:"test_cmd,omitempty"`
	GitName       *string `json:"git_name,omitempty"`
	GitEmail      *string `json:"git_email,omitempty"`
	CredentialRef *string `json:"credential_ref,omitempty"`
	RetentionDays *int    `json:"retention_days,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// ProjectResponse — ответ с проектом.
type ProjectResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	RepoURL       string    `json:"repo_url"`
	Branch        string    `json:"branch"`
	Remote        string    `json:"remote"`
	RegistryURL   string    `json:"registry_url"`
	Package       string    `json:"package"`
	InstallCmd    string    `json:"install_cmd"`
	BuildCmd      string    `json:"build_cmd"`
	TestCmd       string    `json:"test_cmd"`
	GitName       string    `json:"git_name"`
	GitEmail      string    `json:"git_email"`
	CredentialRef string    `json:"credential_ref"`
	RetentionDays int       `json:"retention_days"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProjectFromDomain конвертирует domain.Project в ProjectResponse.
func ProjectFromDomain(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:            p.ID,
		Name:          p.Name,
		RepoURL:       p.RepoURL,
		Branch:        p.Branch,
		Remote:        p.Remote,
		RegistryURL:   p.RegistryURL,
		Package:       p.Package,
		InstallCmd:    p.InstallCmd,
		BuildCmd:      p.BuildCmd,
		TestCmd:       p.TestCmd,
		GitName:       p.GitName,
		GitEmail:      p.GitEmail,
		CredentialRef: p.CredentialRef,
		RetentionDays: p.RetentionDays,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// Trigger DTOs

// PushHookRequest — payload push-webhook'а от git-хостинга.
type PushHookRequest struct {
	Project string `json:"project"`
	Branch  string `json:"branch"`
	Commit  string `json:"commit,omitempty"`
}

// HookIgnoredResponse — ответ на проигнорированный триггер.
type HookIgnoredResponse struct {
	Ignored bool   `json:"ignored"`
	Reason  string `json:"reason"`
}

// Run DTOs

// RunResponse — ответ с run.
type RunResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	TriggerKind string     `json:"trigger_kind"`
	Branch      string     `json:"branch"`
	Commit      string     `json:"commit,omitempty"`
	Status      string     `json:"status"`
	FailedStage string     `json:"failed_stage,omitempty"`
	FailureKind string     `json:"failure_kind,omitempty"`
	PrevVersion string     `json:"prev_version,omitempty"`
	NewVersion  string     `json:"new_version,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		TriggerKind: string(r.Trigger.Kind),
		Branch:      r.Trigger.Branch,
		Commit:      r.Trigger.Commit,
		Status:      string(r.Status),
		FailedStage: string(r.FailedStage),
		FailureKind: string(r.FailureKind),
		PrevVersion: r.PrevVersion,
		NewVersion:  r.NewVersion,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
	}
}

// Stage DTOs

// StageResponse — ответ с результатом стадии.
type StageResponse struct {
	ID         uuid.UUID  `json:"id"`
	RunID      uuid.UUID  `json:"run_id"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	Stdout     string     `json:"stdout,omitempty"`
	Stderr     string     `json:"stderr,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StageFromDomain конвертирует domain.StageResult в StageResponse.
func StageFromDomain(s domain.StageResult) StageResponse {
	return StageResponse{
		ID:         s.ID,
		RunID:      s.RunID,
		Stage:      string(s.Stage),
		Status:     string(s.Status),
		Stdout:     s.Stdout,
		Stderr:     s.Stderr,
		Error:      s.Error,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}
