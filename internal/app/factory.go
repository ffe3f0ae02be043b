package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quizard-service/internal/domain"
)

// Factory instantiates quizzes and registers them with the registry. It also
// serves as the directory resolving quiz references to live instances.
type Factory struct {
	id       domain.Identity
	registry *Registry
	feed     *Feed
	archive  Archive
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	seq     uint64
	quizzes map[string]*Quiz
}

// NewFactory constructs a factory acting under the given identity. The
// registry must be told about this identity (SetFactory) before CreateQuiz
// can succeed.
func NewFactory(id domain.Identity, registry *Registry, feed *Feed, archive Archive, logger *zap.Logger) (*Factory, error) {
	return newFactoryWithClock(id, registry, feed, archive, logger, time.Now)
}

func newFactoryWithClock(id domain.Identity, registry *Registry, feed *Feed, archive Archive, logger *zap.Logger, now func() time.Time) (*Factory, error) {
	if id.Zero() {
		return nil, domain.ErrMissingIdentity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		id:       id,
		registry: registry,
		feed:     feed,
		archive:  archive,
		logger:   logger,
		now:      now,
		quizzes:  make(map[string]*Quiz),
	}, nil
}

// ID returns the factory's caller identity.
func (f *Factory) ID() domain.Identity { return f.id }

// CreateQuiz validates nothing itself: the quiz's own precondition checks
// fail the whole operation. Construction and registry registration are one
// indivisible unit; on any failure nothing is stored or indexed.
func (f *Factory) CreateQuiz(ctx context.Context, teacher domain.Identity, def domain.QuizDefinition) (*Quiz, error) {
	if teacher.Zero() {
		return nil, domain.ErrMissingIdentity
	}
	def.Teacher = teacher

	f.mu.Lock()
	defer f.mu.Unlock()

	ref := fmt.Sprintf("quiz-%d", f.seq+1)
	quiz, err := newQuizWithClock(ref, def, f.registry, f.feed, f.now)
	if err != nil {
		return nil, err
	}
	if err := f.registry.OnQuizCreated(f.id, teacher, ref); err != nil {
		return nil, err
	}
	f.seq++
	f.quizzes[ref] = quiz

	f.feed.Publish(domain.Event{
		Type:    domain.EventQuizCreated,
		QuizRef: ref,
		Teacher: teacher,
		At:      f.now(),
	})
	if f.archive != nil {
		if err := f.archive.SaveQuiz(ctx, quiz.Snapshot()); err != nil {
			f.logger.Warn("archive quiz snapshot", zap.String("ref", ref), zap.Error(err))
		}
	}
	return quiz, nil
}

// Quiz resolves a quiz reference to its live instance.
func (f *Factory) Quiz(ref string) (*Quiz, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	quiz, ok := f.quizzes[ref]
	return quiz, ok
}

// QuizSnapshot returns the public view of a quiz, or domain.ErrQuizNotFound.
func (f *Factory) QuizSnapshot(_ context.Context, ref string) (domain.QuizSnapshot, error) {
	quiz, ok := f.Quiz(ref)
	if !ok {
		return domain.QuizSnapshot{}, domain.ErrQuizNotFound
	}
	return quiz.Snapshot(), nil
}
