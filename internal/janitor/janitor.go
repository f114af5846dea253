package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/relmanhq/relman/internal/repo"
)

// DefaultSchedule — ежедневный sweep в 03:00.
const DefaultSchedule = "0 3 * * *"

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Janitor удаляет terminal runs старше retention-окна проекта.
//
// PUBLISHED_NOT_PUSHED runs не удаляются независимо от возраста:
// это единственная запись о расхождении registry и VCS, и она нужна
// для resume-push.
type Janitor struct {
	projectRepo *repo.ProjectRepo
	runRepo     *repo.RunRepo
	schedule    cron.Schedule
	logger      *slog.Logger
}

// Config — конфигурация Janitor.
type Config struct {
	ProjectRepo *repo.ProjectRepo
	RunRepo     *repo.RunRepo

	// Schedule — cron-выражение запуска sweep (default: DefaultSchedule).
	Schedule string

	Logger *slog.Logger
}

// New создаёт новый Janitor.
func New(cfg Config) (*Janitor, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = DefaultSchedule
	}

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse janitor schedule %q: %w", expr, err)
	}

	return &Janitor{
		projectRepo: cfg.ProjectRepo,
		runRepo:     cfg.RunRepo,
		schedule:    schedule,
		logger:      cfg.Logger,
	}, nil
}

// Run выполняет sweep по расписанию до отмены контекста.
func (j *Janitor) Run(ctx context.Context) error {
	for {
		next := j.schedule.Next(time.Now())
		j.logger.Info("next sweep scheduled", "at", next)

		select {
		case <-time.After(time.Until(next)):
			if err := j.Sweep(ctx); err != nil {
				j.logger.Error("sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sweep выполняет один проход: для каждого проекта удаляет terminal runs
// старше его retention-окна.
//
// Ошибки одного проекта не блокируют обработку остальных.
func (j *Janitor) Sweep(ctx context.Context) error {
	now := time.Now()

	projects, err := j.projectRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	var total int
	for i := range projects {
		p := &projects[i]

		cutoff := now.AddDate(0, 0, -p.RetentionDays)
		deleted, err := j.runRepo.DeleteTerminalBefore(ctx, p.ID, cutoff)
		if err != nil {
			j.logger.Error("failed to sweep project runs",
				"project_id", p.ID,
				"project", p.Name,
				"error", err,
			)
			continue
		}

		if deleted > 0 {
			j.logger.Info("swept old runs",
				"project_id", p.ID,
				"project", p.Name,
				"deleted", deleted,
				"cutoff", cutoff,
			)
		}
		total += deleted
	}

	j.logger.Info("sweep completed", "projects", len(projects), "deleted", total)
	return nil
}
