package api

import (
	"log/slog"

	"github.com/relmanhq/relman/internal/mq"
	"github.com/relmanhq/relman/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	projectRepo *repo.ProjectRepo
	runRepo     *repo.RunRepo
	stageRepo   *repo.StageRepo
	publisher   *mq.Publisher
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	ProjectRepo *repo.ProjectRepo
	RunRepo     *repo.RunRepo
	StageRepo   *repo.StageRepo

	// Publisher опционален: без него runs подхватывает только polling
	// оркестратора, а resume-push недоступен.
	Publisher *mq.Publisher

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		projectRepo: cfg.ProjectRepo,
		runRepo:     cfg.RunRepo,
		stageRepo:   cfg.StageRepo,
		publisher:   cfg.Publisher,
		logger:      cfg.Logger,
	}
}
