package domain

// RunStatus — статус выполнения release run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	                  ↘ PUBLISHED_NOT_PUSHED (→ SUCCEEDED через resume-push)
//	PENDING → SUPERSEDED (вытеснен более новым run той же ветки)
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — pipeline в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все стадии завершены, версия опубликована и запушена.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — одна из стадий упала до публикации.
	// Registry и remote репозиторий не изменены.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusPublishedNotPushed — версия опубликована в registry,
	// но push тега/коммита не удался. Registry и VCS разошлись —
	// требуется resume-push или ручное вмешательство.
	RunStatusPublishedNotPushed RunStatus = "PUBLISHED_NOT_PUSHED"

	// RunStatusSuperseded — pending run вытеснен более новым триггером
	// той же ветки (burst пушей схлопывается в один релиз).
	RunStatusSuperseded RunStatus = "SUPERSEDED"
)

// IsTerminal возвращает true, если статус финальный.
//
// PUBLISHED_NOT_PUSHED формально терминален для pipeline, но допускает
// один переход: → SUCCEEDED через resume-push (только стадия push,
// без повторной публикации).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusPublishedNotPushed, RunStatusSuperseded:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус известен.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded,
		RunStatusFailed, RunStatusPublishedNotPushed, RunStatusSuperseded:
		return true
	default:
		return false
	}
}

// StageStatus — статус выполнения одной стадии pipeline.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED
//
// Terminal StageResult иммутабелен — retry стадии внутри run не бывает.
type StageStatus string

const (
	// StageStatusRunning — стадия выполняется.
	StageStatusRunning StageStatus = "RUNNING"

	// StageStatusSucceeded — стадия успешно завершена.
	StageStatusSucceeded StageStatus = "SUCCEEDED"

	// StageStatusFailed — стадия завершилась ошибкой.
	StageStatusFailed StageStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s StageStatus) IsTerminal() bool {
	switch s {
	case StageStatusSucceeded, StageStatusFailed:
		return true
	default:
		return false
	}
}

// FailureKind — классификация ошибки run для оператора.
//
// От kind зависит ремедиация: setup/verification — чинить код или окружение
// и перезапускать; auth — проверять credential; publish — смотреть registry;
// published-not-pushed — retry push или ручной тег, но НЕ повторная публикация.
type FailureKind string

const (
	// FailureKindSetup — checkout, настройка identity или установка
	// release-инструмента не удались. Внешнее состояние не изменено.
	FailureKindSetup FailureKind = "SETUP"

	// FailureKindVerification — build или test упали.
	// Основной quality gate: никаких публикаций и пушей.
	FailureKindVerification FailureKind = "VERIFICATION"

	// FailureKindAuth — аутентификация в registry не удалась
	// (плохой или отсутствующий credential). Публикация не выполнялась.
	FailureKindAuth FailureKind = "AUTH"

	// FailureKindPublish — публикация упала до изменения remote state
	// (включая попытку опубликовать уже существующую версию).
	FailureKindPublish FailureKind = "PUBLISH"

	// FailureKindPublishedNotPushed — публикация прошла, push — нет.
	// Единственное частично-консистентное состояние.
	FailureKindPublishedNotPushed FailureKind = "PUBLISHED_NOT_PUSHED"
)
