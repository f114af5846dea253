package domain

// Stage — одна стадия release pipeline.
//
// Стадии выполняются строго последовательно в порядке Pipeline():
// ни параллелизма, ни пропусков. Падение любой стадии немедленно
// завершает run, минуя все последующие стадии.
type Stage string

const (
	// StageCheckout — получение snapshot исходников (clone ветки релиза).
	StageCheckout Stage = "CHECKOUT"

	// StageIdentity — настройка git-идентичности для коммитов этого run.
	// Идентичность передаётся явно в конфигурации проекта, а не берётся
	// из глобального окружения.
	StageIdentity Stage = "IDENTITY"

	// StageToolSetup — установка release-инструмента.
	StageToolSetup Stage = "TOOL_SETUP"

	// StageBuild — сборка пакета.
	StageBuild Stage = "BUILD"

	// StageTest — запуск тестов. Основной quality gate.
	StageTest Stage = "TEST"

	// StageAuth — аутентификация в package registry.
	// Выполняется только после успешных build и test.
	StageAuth Stage = "AUTH"

	// StageVersionBump — вычисление следующей версии
	// (patch последней опубликованной + 1).
	StageVersionBump Stage = "VERSION_BUMP"

	// StagePublish — публикация артефакта под новой версией.
	StagePublish Stage = "PUBLISH"

	// StagePush — коммит и тег новой версии, push в remote.
	StagePush Stage = "PUSH"
)

// pipelineOrder — фиксированный порядок стадий.
var pipelineOrder = []Stage{
	StageCheckout,
	StageIdentity,
	StageToolSetup,
	StageBuild,
	StageTest,
	StageAuth,
	StageVersionBump,
	StagePublish,
	StagePush,
}

// Pipeline возвращает стадии в порядке выполнения.
// Возвращает копию — порядок неизменяем.
func Pipeline() []Stage {
	stages := make([]Stage, len(pipelineOrder))
	copy(stages, pipelineOrder)
	return stages
}

// FailureKind возвращает классификацию ошибки при падении данной стадии.
func (s Stage) FailureKind() FailureKind {
	switch s {
	case StageCheckout, StageIdentity, StageToolSetup:
		return FailureKindSetup
	case StageBuild, StageTest:
		return FailureKindVerification
	case StageAuth:
		return FailureKindAuth
	case StageVersionBump, StagePublish:
		return FailureKindPublish
	case StagePush:
		return FailureKindPublishedNotPushed
	default:
		return FailureKindSetup
	}
}

// IsValid проверяет, что стадия известна pipeline.
func (s Stage) IsValid() bool {
	for _, stage := range pipelineOrder {
		if s == stage {
			return true
		}
	}
	return false
}

// String возвращает строковое представление Stage.
func (s Stage) String() string {
	return string(s)
}
