// Package orchestrator выполняет release pipeline.
//
// Orchestrator отвечает за:
//   - Получение новых runs из очереди RabbitMQ (polling по БД как fallback)
//   - Захват branch lock — один run на (проект, ветка)
//   - Вытеснение устаревших pending runs (burst пушей → один релиз)
//   - Последовательное выполнение стадий pipeline с gating'ом:
//     ни реестр, ни remote не изменяются, пока build и test не прошли
//   - Финализацию run (SUCCEEDED / FAILED / PUBLISHED_NOT_PUSHED)
//   - Ремедиацию PUBLISHED_NOT_PUSHED: повтор только стадии push
//
// Orchestrator — это "мозг" системы; внешние системы (git, реестр,
// сборка) подключаются через узкие интерфейсы-коллабораторы.
package orchestrator
