package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relmanhq/relman/internal/domain"
)

// RunState — in-memory состояние активного run.
//
// Персистентное состояние живёт в БД; RunState нужен для дедупликации
// (run не обрабатывается дважды одним процессом) и для статистики.
type RunState struct {
	mu sync.RWMutex

	runID     uuid.UUID
	projectID uuid.UUID
	branch    string
	stage     domain.Stage
	startedAt time.Time
}

// RunStats — снимок состояния активного run.
type RunStats struct {
	RunID     uuid.UUID
	ProjectID uuid.UUID
	Branch    string
	Stage     domain.Stage
	Elapsed   time.Duration
}

// NewRunState создаёт состояние для запускаемого run.
func NewRunState(run *domain.Run, project *domain.Project) *RunState {
	return &RunState{
		runID:     run.ID,
		projectID: project.ID,
		branch:    project.Branch,
		startedAt: time.Now(),
	}
}

// RunID возвращает идентификатор run.
func (s *RunState) RunID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// SetStage отмечает текущую выполняемую стадию.
func (s *RunState) SetStage(stage domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

// Stats возвращает снимок состояния.
func (s *RunState) Stats() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return RunStats{
		RunID:     s.runID,
		ProjectID: s.projectID,
		Branch:    s.branch,
		Stage:     s.stage,
		Elapsed:   time.Since(s.startedAt),
	}
}
