package api

import (
	"encoding/json"
	"net/http"

	"github.com/relmanhq/relman/internal/domain"
	"github.com/relmanhq/relman/internal/telemetry"
)

// PushHook принимает push-webhook от git-хостинга.
//
// Run создаётся только для push в release-ветку активного проекта.
// Остальные пуши подтверждаются (202) и игнорируются — хостинг не должен
// ретраить webhook из-за того, что ветка нам не интересна.
func (h *Handler) PushHook(w http.ResponseWriter, r *http.Request) {
	var req PushHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Project == "" || req.Branch == "" {
		BadRequest(w, "project and branch are required")
		return
	}

	project, err := h.projectRepo.GetByName(r.Context(), req.Project)
	if HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	trigger := domain.TriggerEvent{
		Kind:   domain.TriggerPush,
		Branch: req.Branch,
		Commit: req.Commit,
	}

	if !project.IsActive {
		telemetry.TriggersTotal.WithLabelValues("push", "ignored").Inc()
		h.logger.Info("push ignored: project inactive",
			"project_id", project.ID,
			"branch", req.Branch,
		)
		Accepted(w, HookIgnoredResponse{Ignored: true, Reason: "project is inactive"})
		return
	}

	if !trigger.AllowsRun(project.Branch) {
		telemetry.TriggersTotal.WithLabelValues("push", "ignored").Inc()
		h.logger.Info("push ignored: not a release branch",
			"project_id", project.ID,
			"branch", req.Branch,
			"release_branch", project.Branch,
		)
		Accepted(w, HookIgnoredResponse{Ignored: true, Reason: "not the release branch"})
		return
	}

	run := h.newRun(project, trigger)
	if err := h.runRepo.Create(r.Context(), run); err != nil {
		HandleRepoError(w, h.logger, err, "run not found")
		return
	}

	telemetry.TriggersTotal.WithLabelValues("push", "accepted").Inc()
	h.notifyRunPending(r, run.ID)

	h.logger.Info("run created from push",
		"run_id", run.ID,
		"project_id", project.ID,
		"branch", req.Branch,
		"commit", req.Commit,
	)
	Created(w, RunFromDomain(*run))
}
