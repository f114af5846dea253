package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/relmanhq/relman/internal/domain"
	"github.com/relmanhq/relman/internal/mq"
	"github.com/relmanhq/relman/internal/repo"
	"github.com/relmanhq/relman/internal/telemetry"
)

// handleRunPending обрабатывает событие о новом pending run.
func (o *Orchestrator) handleRunPending(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunPendingPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse run.pending payload", "error", err)
		return err
	}

	o.logger.Debug("received run.pending event", "run_id", payload.RunID)

	if o.isRunActive(payload.RunID) {
		o.logger.Debug("run already active, skipping", "run_id", payload.RunID)
		return nil
	}

	if err := o.processRun(ctx, payload.RunID); err != nil {
		// Часть исходов не требует redelivery: run исчез, уже не pending
		// или подхвачен параллельным poll'ом
		if errors.Is(err, ErrRunNotPending) || errors.Is(err, ErrRunAlreadyActive) || errors.Is(err, ErrRunNotFound) {
			o.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		o.logger.Error("failed to process run", "run_id", payload.RunID, "error", err)
		return err
	}

	return nil
}

// processRun обрабатывает run по его текущему статусу.
func (o *Orchestrator) processRun(ctx context.Context, runID uuid.UUID) error {
	run, err := o.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}

	switch run.Status {
	case domain.RunStatusPending:
		return o.startRun(ctx, run)
	case domain.RunStatusPublishedNotPushed:
		// Ремедиация: повтор только стадии push
		return o.resumePush(ctx, run)
	default:
		return ErrRunNotPending
	}
}

// startRun выполняет полный pipeline для pending run.
func (o *Orchestrator) startRun(ctx context.Context, run *domain.Run) error {
	logger := telemetry.WithRunID(o.logger, run.ID.String())

	// 1. Загружаем проект
	project, err := o.projects.GetByID(ctx, run.ProjectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return o.failBeforeStart(ctx, run, logger, "project not found")
		}
		return fmt.Errorf("get project: %w", err)
	}
	logger = telemetry.WithProjectID(logger, project.ID.String())

	// 2. Неактивный проект не релизится
	if !project.IsActive {
		return o.failBeforeStart(ctx, run, logger, "project is not active")
	}

	// 3. Вытеснение: релизится только самый свежий pending триггер.
	// Если этот run уже не самый свежий — он SUPERSEDED, иначе
	// SUPERSEDED становятся все более старые pending runs проекта.
	newest, err := o.runs.NewestPending(ctx, run.ProjectID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("find newest pending run: %w", err)
	}
	if newest != nil && newest.ID != run.ID {
		run.MarkSuperseded()
		if err := o.runs.Update(ctx, run); err != nil {
			return fmt.Errorf("supersede run: %w", err)
		}
		logger.Info("run superseded by newer trigger", "newer_run_id", newest.ID)
		o.finishRun(ctx, run, logger)
		return nil
	}

	superseded, err := o.runs.SupersedePending(ctx, run.ProjectID, run.ID)
	if err != nil {
		return fmt.Errorf("supersede older runs: %w", err)
	}
	if superseded > 0 {
		logger.Info("superseded older pending runs", "count", superseded)
	}

	// 4. Branch lock: один run на (проект, ветка). Занятый lock —
	// не ошибка: run остаётся PENDING и будет подхвачен следующим poll.
	lock, acquired, err := o.locker.Acquire(ctx, project.ID, project.Branch)
	if err != nil {
		return fmt.Errorf("acquire branch lock: %w", err)
	}
	if !acquired {
		logger.Debug("branch lock busy, run stays pending", "branch", project.Branch)
		return nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release branch lock", "error", err)
		}
	}()

	// 5. Дедупликация внутри процесса
	state := NewRunState(run, project)
	if err := o.addActiveRun(state); err != nil {
		return err
	}
	defer o.removeActiveRun(run.ID)

	// 6. Переводим run в RUNNING
	run.MarkRunning()
	if err := o.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to running: %w", err)
	}

	logger.Info("run started",
		"trigger", run.Trigger.Kind,
		"branch", project.Branch,
		"package", project.Package,
	)

	// 7. Pipeline: run приходит из execute в терминальном статусе
	p := newPipeline(o, run, project, state, logger)
	p.execute(ctx)

	// 8. Финализация. Отмена ctx уже учтена как провал стадии —
	// терминальный статус персистится вне отменяемого контекста.
	finCtx := context.WithoutCancel(ctx)
	if err := o.runs.Update(finCtx, run); err != nil {
		return fmt.Errorf("persist terminal run state: %w", err)
	}
	o.finishRun(finCtx, run, logger)
	return nil
}

// resumePush повторяет стадию push для PUBLISHED_NOT_PUSHED run.
//
// Реестр уже содержит NewVersion — публикация НЕ повторяется ни при
// каком исходе. Единственный допустимый переход: → SUCCEEDED.
func (o *Orchestrator) resumePush(ctx context.Context, run *domain.Run) error {
	if run.Status != domain.RunStatusPublishedNotPushed {
		return ErrNotResumable
	}

	logger := telemetry.WithRunID(o.logger, run.ID.String())

	project, err := o.projects.GetByID(ctx, run.ProjectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, run.ProjectID)
		}
		return fmt.Errorf("get project: %w", err)
	}

	lock, acquired, err := o.locker.Acquire(ctx, project.ID, project.Branch)
	if err != nil {
		return fmt.Errorf("acquire branch lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s/%s", ErrBranchBusy, project.Name, project.Branch)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release branch lock", "error", err)
		}
	}()

	state := NewRunState(run, project)
	if err := o.addActiveRun(state); err != nil {
		return err
	}
	defer o.removeActiveRun(run.ID)

	logger.Info("resuming push", "version", run.NewVersion)

	p := newPipeline(o, run, project, state, logger)
	if err := p.executePushOnly(ctx); err != nil {
		// Run остаётся PUBLISHED_NOT_PUSHED, попытка записана в стадиях.
		// Ошибку наверх не возвращаем: redelivery означал бы автоматический
		// retry push'а по кругу, а ремедиацию перезапускает оператор
		if updErr := o.runs.Update(context.WithoutCancel(ctx), run); updErr != nil {
			logger.Error("failed to persist run after push retry", "error", updErr)
		}
		logger.Warn("push retry failed, run stays remediable", "error", err)
		return nil
	}

	finCtx := context.WithoutCancel(ctx)
	if err := o.runs.Update(finCtx, run); err != nil {
		return fmt.Errorf("persist terminal run state: %w", err)
	}
	o.finishRun(finCtx, run, logger)
	return nil
}

// failBeforeStart завершает run, который не может начать выполняться.
func (o *Orchestrator) failBeforeStart(ctx context.Context, run *domain.Run, logger *slog.Logger, reason string) error {
	run.MarkFailed(domain.StageCheckout, reason)
	if err := o.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	logger.Warn("run rejected", "reason", reason)
	o.finishRun(ctx, run, logger)
	return nil
}

// finishRun — общая пост-обработка терминального run: метрики,
// workspace cleanup, событие для внешних подписчиков.
func (o *Orchestrator) finishRun(ctx context.Context, run *domain.Run, logger *slog.Logger) {
	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()

	// Workspace сохраняется только для PUBLISHED_NOT_PUSHED:
	// он нужен ремедиации push'а
	if run.Status != domain.RunStatusPublishedNotPushed {
		if err := o.source.Cleanup(run.ID); err != nil {
			logger.Warn("failed to cleanup workspace", "error", err)
		}
	}

	if o.publisher != nil {
		payload := mq.RunFinishedPayload{
			RunID:       run.ID,
			ProjectID:   run.ProjectID,
			Status:      string(run.Status),
			NewVersion:  run.NewVersion,
			FailedStage: string(run.FailedStage),
			FailureKind: string(run.FailureKind),
			Error:       run.Error,
		}
		if err := o.publisher.PublishRunFinished(ctx, payload); err != nil {
			logger.Warn("failed to publish run.finished", "error", err)
		}
	}

	logger.Info("run finished",
		"status", run.Status,
		"version", run.NewVersion,
		"failed_stage", run.FailedStage,
		"duration", run.Duration(),
	)
}
