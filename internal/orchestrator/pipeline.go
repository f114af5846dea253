package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relmanhq/relman/internal/domain"
	"github.com/relmanhq/relman/internal/registry"
	"github.com/relmanhq/relman/internal/secrets"
	"github.com/relmanhq/relman/internal/telemetry"
	"github.com/relmanhq/relman/internal/toolchain"
)

// pipeline — выполнение стадий одного run.
//
// Стадии идут строго в порядке domain.Pipeline(), без параллелизма,
// пропусков и ретраев внутри run. Gate: до успешных BUILD и TEST ни
// одна стадия не изменяет ни реестр, ни remote.
type pipeline struct {
	runs        RunStore
	stages      StageStore
	source      SourceControl
	runner      toolchain.Runner
	registry    Registry
	credentials secrets.Provider

	run     *domain.Run
	project *domain.Project
	state   *RunState
	logger  *slog.Logger

	// Состояние, передаваемое между стадиями
	ws   Workspace
	cred *secrets.Credential
}

// newPipeline собирает pipeline для run из коллабораторов оркестратора.
func newPipeline(o *Orchestrator, run *domain.Run, project *domain.Project, state *RunState, logger *slog.Logger) *pipeline {
	return &pipeline{
		runs:        o.runs,
		stages:      o.stages,
		source:      o.source,
		runner:      o.runner,
		registry:    o.registry,
		credentials: o.credentials,
		run:         run,
		project:     project,
		state:       state,
		logger:      logger,
	}
}

// execute проводит run через все стадии и оставляет его в терминальном
// статусе. Провал любой стадии завершает run немедленно; провал push'а
// после успешной публикации — выделенное состояние PUBLISHED_NOT_PUSHED.
func (p *pipeline) execute(ctx context.Context) {
	// Окно credential закрывается при любом исходе run
	defer p.closeCredentialWindow()

	for _, stage := range domain.Pipeline() {
		if err := p.runStage(ctx, stage); err != nil {
			if stage == domain.StagePush {
				p.run.MarkPublishedNotPushed(err.Error())
			} else {
				p.run.MarkFailed(stage, err.Error())
			}
			return
		}
	}

	p.run.MarkSucceeded()
}

// executePushOnly повторяет только стадию push поверх сохранённого
// workspace. Публикация не повторяется: версия уже в реестре.
func (p *pipeline) executePushOnly(ctx context.Context) error {
	ws, err := p.source.Open(p.run.ID)
	if err != nil {
		return fmt.Errorf("reopen workspace: %w", err)
	}
	p.ws = ws

	if err := p.runStage(ctx, domain.StagePush); err != nil {
		p.run.Error = err.Error()
		return err
	}

	p.run.MarkSucceeded()
	return nil
}

// runStage персистит StageResult вокруг выполнения одной стадии.
func (p *pipeline) runStage(ctx context.Context, stage domain.Stage) error {
	p.state.SetStage(stage)
	logger := telemetry.WithStage(p.logger, string(stage))

	result := domain.NewStageResult(p.run.ID, stage)
	if err := p.stages.Create(ctx, result); err != nil {
		return fmt.Errorf("persist stage start: %w", err)
	}

	logger.Debug("stage started")
	stdout, stderr, stageErr := p.doStage(ctx, stage)

	if stageErr != nil {
		result.MarkFailed(stdout, stderr, stageErr.Error())
	} else {
		result.MarkSucceeded(stdout, stderr)
	}

	// Результат стадии персистится и при отменённом ctx:
	// host-imposed timeout — это провал стадии, а не потеря записи
	if err := p.stages.Finalize(context.WithoutCancel(ctx), result); err != nil {
		logger.Error("failed to finalize stage result", "error", err)
	}

	telemetry.ObserveStage(string(stage), string(result.Status), result.Duration())

	if stageErr != nil {
		logger.Warn("stage failed", "error", stageErr, "duration", result.Duration())
		return stageErr
	}
	logger.Debug("stage succeeded", "duration", result.Duration())
	return nil
}

// doStage выполняет одну стадию pipeline.
func (p *pipeline) doStage(ctx context.Context, stage domain.Stage) (stdout, stderr string, err error) {
	switch stage {
	case domain.StageCheckout:
		ws, err := p.source.Checkout(ctx, p.run.ID, p.project.RepoURL, p.project.Branch)
		if err != nil {
			return "", "", err
		}
		p.ws = ws
		return "", "", nil

	case domain.StageIdentity:
		return "", "", p.ws.SetIdentity(p.project.GitName, p.project.GitEmail)

	case domain.StageToolSetup:
		return p.runCommand(ctx, p.project.InstallCmd)

	case domain.StageBuild:
		return p.runCommand(ctx, p.project.BuildCmd)

	case domain.StageTest:
		return p.runCommand(ctx, p.project.TestCmd)

	case domain.StageAuth:
		cred, err := p.credentials.Resolve(ctx, p.project.CredentialRef)
		if err != nil {
			return "", "", err
		}
		p.cred = cred
		return "", "", p.registry.Login(ctx, p.project.RegistryURL, cred)

	case domain.StageVersionBump:
		return "", "", p.bumpVersion(ctx)

	case domain.StagePublish:
		// Credential нужен только до конца публикации — окно
		// закрывается здесь, а не в конце run
		defer p.closeCredentialWindow()
		return "", "", p.registry.Publish(ctx, p.project.RegistryURL, p.project.Package, p.run.NewVersion, p.cred)

	case domain.StagePush:
		return "", "", p.ws.PushRelease(ctx, p.project.Remote, p.project.Branch, p.run.NewVersion)

	default:
		return "", "", fmt.Errorf("unknown stage %s", stage)
	}
}

// runCommand выполняет настроенную команду проекта в workspace.
func (p *pipeline) runCommand(ctx context.Context, command string) (string, string, error) {
	command = toolchain.Expand(command, map[string]string{
		"branch":  p.project.Branch,
		"version": p.run.NewVersion, // пусто до version-bump
	})

	result, err := p.runner.Run(ctx, p.ws.Dir(), command)
	if result != nil {
		return result.Stdout, result.Stderr, err
	}
	return "", "", err
}

// bumpVersion вычисляет следующую версию (patch последней опубликованной
// + 1; major/minor не меняются) и локально коммитит и тегирует её.
func (p *pipeline) bumpVersion(ctx context.Context) error {
	prev, err := p.registry.LastPublished(ctx, p.project.RegistryURL, p.project.Package)
	if err != nil {
		if !errors.Is(err, registry.ErrPackageNotFound) {
			return err
		}
		// Пакет ещё ни разу не публиковался
		prev = ""
	}

	next := domain.FirstVersion
	if prev != "" {
		next, err = domain.NextPatch(prev)
		if err != nil {
			return fmt.Errorf("bump version %q: %w", prev, err)
		}
	}

	if _, err := p.ws.CommitRelease(ctx, next); err != nil {
		return err
	}

	p.run.PrevVersion = prev
	p.run.NewVersion = next
	p.logger.Info("version bumped", "prev", prev, "new", next)
	return nil
}

// closeCredentialWindow зануляет credential. Идемпотентна.
func (p *pipeline) closeCredentialWindow() {
	if p.cred != nil {
		p.cred.Clear()
	}
}
