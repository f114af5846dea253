package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/relmanhq/relman/internal/domain"
	"github.com/relmanhq/relman/internal/repo"
	"github.com/relmanhq/relman/internal/telemetry"
)

// ListRuns возвращает runs с фильтрацией по проекту и статусу.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		Limit:  mustParseInt(r.URL.Query().Get("limit"), 50),
		Offset: mustParseInt(r.URL.Query().Get("offset"), 0),
	}

	if raw := r.URL.Query().Get("project_id"); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, "invalid project_id")
			return
		}
		filter.ProjectID = &projectID
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.RunStatus(raw)
		if !status.IsValid() {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	runs, err := h.runRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "runs not found") {
		return
	}

	result := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		result = append(result, RunFromDomain(run))
	}

	List(w, result, len(result))
}

// CreateRun запускает релиз вручную для проекта.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid project id")
		return
	}

	project, err := h.projectRepo.GetByID(r.Context(), projectID)
	if HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	if !project.IsActive {
		telemetry.TriggersTotal.WithLabelValues("manual", "ignored").Inc()
		InvalidState(w, "project is inactive")
		return
	}

	run := h.newRun(project, domain.TriggerEvent{
		Kind:   domain.TriggerManual,
		Branch: project.Branch,
	})

	if err := h.runRepo.Create(r.Context(), run); err != nil {
		HandleRepoError(w, h.logger, err, "run not found")
		return
	}

	telemetry.TriggersTotal.WithLabelValues("manual", "accepted").Inc()
	h.notifyRunPending(r, run.ID)

	h.logger.Info("run created",
		"run_id", run.ID,
		"project_id", project.ID,
		"trigger", run.Trigger.Kind,
	)
	Created(w, RunFromDomain(*run))
}

// GetRun возвращает run по ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunStages возвращает результаты стадий run в порядке выполнения.
func (h *Handler) ListRunStages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	if _, err := h.runRepo.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	stages, err := h.stageRepo.ListByRunID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "stages not found") {
		return
	}

	result := make([]StageResponse, 0, len(stages))
	for _, s := range stages {
		result = append(result, StageFromDomain(s))
	}

	List(w, result, len(result))
}

// ResumePush ставит run в статусе PUBLISHED_NOT_PUSHED на повторный push.
// Повторяется только push: публикация уже состоялась и не выполняется заново.
func (h *Handler) ResumePush(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	if run.Status != domain.RunStatusPublishedNotPushed {
		InvalidState(w, "run is not in PUBLISHED_NOT_PUSHED state")
		return
	}

	if h.publisher == nil {
		Unavailable(w, "message queue is not configured, resume-push is unavailable")
		return
	}

	if err := h.publisher.PublishRunPending(r.Context(), run.ID); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("resume-push requested", "run_id", run.ID)
	Accepted(w, RunFromDomain(*run))
}

// newRun создаёт pending run для проекта.
func (h *Handler) newRun(project *domain.Project, trigger domain.TriggerEvent) *domain.Run {
	return &domain.Run{
		ID:        uuid.New(),
		ProjectID: project.ID,
		Trigger:   trigger,
		Status:    domain.RunStatusPending,
		CreatedAt: time.Now(),
	}
}

// notifyRunPending публикует событие о новом pending run. Без mq run
// подхватит polling оркестратора, поэтому ошибка публикации не фатальна.
func (h *Handler) notifyRunPending(r *http.Request, runID uuid.UUID) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishRunPending(r.Context(), runID); err != nil {
		h.logger.Warn("failed to publish run pending event", "run_id", runID, "error", err)
	}
}

// mustParseInt парсит int с значением по умолчанию.
func mustParseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
