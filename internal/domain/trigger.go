package domain

// TriggerKind — причина запуска pipeline.
type TriggerKind string

const (
	// TriggerPush — push в ветку репозитория (webhook).
	TriggerPush TriggerKind = "PUSH"

	// TriggerManual — явный ручной запуск (API/CLI).
	TriggerManual TriggerKind = "MANUAL"
)

// IsValid проверяет, что kind известен.
func (k TriggerKind) IsValid() bool {
	return k == TriggerPush || k == TriggerManual
}

// TriggerEvent — событие, инициировавшее run.
//
// Инвариант: запустить run может только push в настроенную release-ветку
// проекта либо ручной запуск. Пуши в другие ветки подтверждаются
// и игнорируются.
type TriggerEvent struct {
	// Kind — тип триггера.
	Kind TriggerKind `json:"kind"`

	// Branch — ветка, в которую был push. Для manual — release-ветка проекта.
	Branch string `json:"branch"`

	// Commit — hash коммита (опционально, для логов и webhook payload).
	Commit string `json:"commit,omitempty"`
}

// AllowsRun проверяет инвариант триггера против release-ветки проекта.
func (e TriggerEvent) AllowsRun(releaseBranch string) bool {
	switch e.Kind {
	case TriggerManual:
		return true
	case TriggerPush:
		return e.Branch == releaseBranch
	default:
		return false
	}
}
