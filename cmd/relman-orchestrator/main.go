// relman Orchestrator — исполняет release runs.
//
// Orchestrator:
//   - Получает pending runs из RabbitMQ (и через polling fallback)
//   - Проводит каждый run через стадии pipeline строго последовательно
//   - Публикует новую версию в registry и пушит release-коммит и тег
//   - Фиксирует терминальный статус, включая PUBLISHED_NOT_PUSHED
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relmanhq/relman/internal/mq"
	"github.com/relmanhq/relman/internal/orchestrator"
	"github.com/relmanhq/relman/internal/repo"
	"github.com/relmanhq/relman/internal/secrets"
	"github.com/relmanhq/relman/internal/telemetry"
	"github.com/relmanhq/relman/internal/toolchain"
	"github.com/relmanhq/relman/internal/vcs"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting relman-orchestrator")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Схема БД
	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Создаём репозитории
	runRepo := repo.NewRunRepo(pool)
	projectRepo := repo.NewProjectRepo(pool)
	stageRepo := repo.NewStageRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Git-коллаборатор: workspace'ы runs и push релизов
	git := vcs.New(vcs.Config{
		WorkRoot: os.Getenv("WORK_ROOT"),
		Token:    os.Getenv("GIT_TOKEN"),
	}, logger)

	// Создаём orchestrator
	orchCfg := orchestrator.Config{
		Runs:          runRepo,
		Projects:      projectRepo,
		Stages:        stageRepo,
		Locker:        orchestrator.NewBranchLocker(pool),
		SourceControl: orchestrator.NewGitSourceControl(git),
		Runner:        toolchain.NewShellRunner(logger),
		Registry:      orchestrator.NewHTTPRegistry(logger),
		Credentials:   secrets.NewEnvProvider(),
		Conn:          mqConn,
		Logger:        logger,
	}
	// Нулевой указатель в интерфейсном поле выглядел бы как
	// сконфигурированный publisher
	if publisher != nil {
		orchCfg.Publisher = publisher
	}
	orch := orchestrator.New(orchCfg)

	// Запускаем orchestrator
	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ORCH_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем orchestrator
	orch.Stop()
	logger.Info("relman-orchestrator stopped")
}
