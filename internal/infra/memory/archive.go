package memory

import (
	"context"
	"sync"

	"quizard-service/internal/domain"
)

// Archive is an in-memory implementation of app.Archive, used in tests and
// in postgres-less runs.
type Archive struct {
	mu      sync.RWMutex
	quizzes map[string]domain.QuizSnapshot
	events  []domain.Event
}

func NewArchive() *Archive {
	return &Archive{quizzes: make(map[string]domain.QuizSnapshot)}
}

func (a *Archive) SaveQuiz(_ context.Context, snapshot domain.QuizSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quizzes[snapshot.Ref] = snapshot
	return nil
}

func (a *Archive) AppendEvent(_ context.Context, event domain.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

// QuizSnapshot makes the archive usable as a SnapshotSource.
func (a *Archive) QuizSnapshot(_ context.Context, ref string) (domain.QuizSnapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if snapshot, ok := a.quizzes[ref]; ok {
		return snapshot, nil
	}
	return domain.QuizSnapshot{}, domain.ErrQuizNotFound
}

// Events returns a copy of the recorded event log.
func (a *Archive) Events() []domain.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.Event{}, a.events...)
}
