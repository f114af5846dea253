package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один экземпляр выполнения release pipeline.
//
// Run создаётся когда:
// - приходит push-webhook в release-ветку проекта
// - пользователь запускает релиз вручную (через API/CLI)
//
// Run проходит стадии Pipeline() строго последовательно и завершается
// в одном из терминальных статусов. Terminal run иммутабелен, кроме
// единственного перехода PUBLISHED_NOT_PUSHED → SUCCEEDED (resume-push).
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// ProjectID — ссылка на проект.
	ProjectID uuid.UUID `json:"project_id"`

	// Trigger — событие, запустившее run.
	Trigger TriggerEvent `json:"trigger"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// FailedStage — стадия, на которой run упал. Пустая для успешных runs.
	FailedStage Stage `json:"failed_stage,omitempty"`

	// FailureKind — классификация ошибки. Пустая для успешных runs.
	FailureKind FailureKind `json:"failure_kind,omitempty"`

	// PrevVersion — последняя опубликованная версия на момент запуска.
	// Заполняется стадией version-bump.
	PrevVersion string `json:"prev_version,omitempty"`

	// NewVersion — версия, вычисленная и опубликованная этим run'ом
	// (patch PrevVersion + 1).
	NewVersion string `json:"new_version,omitempty"`

	// StartedAt — время перехода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время перехода в терминальный статус.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки упавшей стадии.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FailedStage = ""
	r.FailureKind = ""
	r.Error = ""
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с указанием упавшей стадии.
// FailureKind выводится из стадии.
func (r *Run) MarkFailed(stage Stage, err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FailedStage = stage
	r.FailureKind = stage.FailureKind()
	r.Error = err
	r.FinishedAt = &now
}

// MarkPublishedNotPushed фиксирует частично-консистентное состояние:
// публикация прошла, push — нет.
func (r *Run) MarkPublishedNotPushed(err string) {
	now := time.Now()
	r.Status = RunStatusPublishedNotPushed
	r.FailedStage = StagePush
	r.FailureKind = FailureKindPublishedNotPushed
	r.Error = err
	r.FinishedAt = &now
}

// MarkSuperseded помечает pending run вытесненным более новым.
func (r *Run) MarkSuperseded() {
	now := time.Now()
	r.Status = RunStatusSuperseded
	r.FinishedAt = &now
}

// StageResult — результат одной стадии pipeline.
//
// Создаётся при старте стадии, финализируется ровно один раз
// и после этого иммутабелен. Stdout/stderr — opaque capture,
// оркестратор их не интерпретирует.
type StageResult struct {
	// ID — уникальный идентификатор результата.
	ID uuid.UUID `json:"id"`

	// RunID — ссылка на родительский run.
	RunID uuid.UUID `json:"run_id"`

	// Stage — стадия pipeline.
	Stage Stage `json:"stage"`

	// Status — статус стадии.
	Status StageStatus `json:"status"`

	// Stdout, Stderr — захваченный вывод внешнего коллаборатора.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Error — текст ошибки при падении.
	Error string `json:"error,omitempty"`

	// StartedAt — время старта стадии.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения стадии.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewStageResult создаёт результат стартовавшей стадии.
func NewStageResult(runID uuid.UUID, stage Stage) *StageResult {
	return &StageResult{
		ID:        uuid.New(),
		RunID:     runID,
		Stage:     stage,
		Status:    StageStatusRunning,
		StartedAt: time.Now(),
	}
}

// Duration возвращает продолжительность стадии.
func (s *StageResult) Duration() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// MarkSucceeded финализирует стадию успехом с захваченным выводом.
func (s *StageResult) MarkSucceeded(stdout, stderr string) {
	now := time.Now()
	s.Status = StageStatusSucceeded
	s.Stdout = stdout
	s.Stderr = stderr
	s.FinishedAt = &now
}

// MarkFailed финализирует стадию ошибкой с захваченным выводом.
func (s *StageResult) MarkFailed(stdout, stderr, errMsg string) {
	now := time.Now()
	s.Status = StageStatusFailed
	s.Stdout = stdout
	s.Stderr = stderr
	s.Error = errMsg
	s.FinishedAt = &now
}
