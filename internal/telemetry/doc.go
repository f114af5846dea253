// Package telemetry обеспечивает наблюдаемость relman.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики release pipeline
//
// Все бинарники используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
