// Package vcs — работа с source control через go-git.
//
// Для каждого run создаётся изолированный workspace (клон release-ветки
// в отдельную директорию). Идентичность коммитов задаётся явно на уровне
// workspace, а не через глобальный git config — run не трогает ambient
// состояние хоста.
//
// Workspace провалившегося push'а сохраняется на диске: ремедиация
// PUBLISHED_NOT_PUSHED переоткрывает его и повторяет только push.
package vcs
