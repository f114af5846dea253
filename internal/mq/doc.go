// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - run.pending   — новый release run ожидает выполнения
//   - run.finished  — release run завершился (терминальный статус)
//
// Exchanges:
//   - relman.runs   — события жизненного цикла runs
//   - relman.events — терминальные события для внешних подписчиков
//   - relman.dlq    — dead letter queue
package mq
