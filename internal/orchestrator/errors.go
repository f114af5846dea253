package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrRunNotFound — run не найден в БД.
	ErrRunNotFound = errors.New("run not found")

	// ErrProjectNotFound — проект run не найден.
	ErrProjectNotFound = errors.New("project not found")

	// ErrRunNotPending — run не в статусе PENDING.
	ErrRunNotPending = errors.New("run is not in PENDING status")

	// ErrRunAlreadyActive — run уже обрабатывается.
	ErrRunAlreadyActive = errors.New("run already being processed")

	// ErrNotResumable — resume-push допустим только для PUBLISHED_NOT_PUSHED.
	ErrNotResumable = errors.New("run is not in PUBLISHED_NOT_PUSHED status")

	// ErrBranchBusy — branch lock занят другим run.
	ErrBranchBusy = errors.New("release branch is busy")
)
