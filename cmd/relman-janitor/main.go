// relman Janitor — retention для terminal runs.
//
// По расписанию удаляет terminal runs старше retention-окна проекта.
// PUBLISHED_NOT_PUSHED runs не трогает: они ждут resume-push.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relmanhq/relman/internal/janitor"
	"github.com/relmanhq/relman/internal/repo"
	"github.com/relmanhq/relman/internal/telemetry"
)

// janitorLockKey — advisory lock: sweep выполняет только один инстанс.
const janitorLockKey int64 = 525252

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting relman-janitor")

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

	j, err := janitor.New(janitor.Config{
		ProjectRepo: repo.NewProjectRepo(pool),
		RunRepo:     repo.NewRunRepo(pool),
		Schedule:    os.Getenv("JANITOR_SCHEDULE"),
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to create janitor", "error", err)
		os.Exit(1)
	}

	// Sweep loop: сначала становимся лидером, потом работаем по расписанию
	go func() {
		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", janitorLockKey)
			}
		}()

		for !hasLock {
			var ok bool
			if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", janitorLockKey).Scan(&ok); err != nil {
				logger.Error("leader lock error", "error", err)
			}
			hasLock = ok
			if hasLock {
				break
			}

			select {
			case <-time.After(10 * time.Second):
			case <-ctx.Done():
				return
			}
		}

		logger.Info("became janitor leader")
		if err := j.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("janitor stopped", "error", err)
			cancel()
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8084"
	if v := os.Getenv("JANITOR_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("relman-janitor stopped")
}
