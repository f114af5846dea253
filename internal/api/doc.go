// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go         — Handler с DI (репозитории, publisher, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - project_handler.go — обработчики для /projects
//   - run_handler.go     — обработчики для /runs (dispatch, inspection, resume-push)
//   - hook_handler.go    — push-webhook (триггер релиза)
//
// API — триггерная поверхность системы: push-webhook и ручной dispatch
// создают PENDING runs, выполняет их orchestrator.
package api
