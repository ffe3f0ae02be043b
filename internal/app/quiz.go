package app

import (
	"sync"
	"time"

	"quizard-service/internal/domain"
)

// AttendanceRegistrar is the slice of the registry a quiz needs: it records
// that a student attended a quiz. Implemented by *Registry.
type AttendanceRegistrar interface {
	OnStudentAttended(quizRef string, student domain.Identity) error
}

// Quiz owns one published quiz definition and its attempt state machine.
// The definition is immutable after construction; attempts are single-shot
// per student and immutable once stored.
type Quiz struct {
	ref      string
	def      domain.QuizDefinition
	now      func() time.Time
	registry AttendanceRegistrar
	feed     *Feed

	mu       sync.RWMutex
	attempts map[domain.Identity]*domain.Attempt
}

// NewQuiz validates the definition and constructs a quiz. It fails with
// domain.ErrInvalidDefinition on any violated precondition and creates no
// partial state.
func NewQuiz(ref string, def domain.QuizDefinition, registry AttendanceRegistrar, feed *Feed) (*Quiz, error) {
	return newQuizWithClock(ref, def, registry, feed, time.Now)
}

// newQuizWithClock allows deterministic timestamps in tests.
func newQuizWithClock(ref string, def domain.QuizDefinition, registry AttendanceRegistrar, feed *Feed, now func() time.Time) (*Quiz, error) {
	if err := validateDefinition(def); err != nil {
		return nil, err
	}
	// Defensive copy so callers cannot mutate the stored definition.
	def.Questions = copyQuestions(def.Questions)
	return &Quiz{
		ref:      ref,
		def:      def,
		now:      now,
		registry: registry,
		feed:     feed,
		attempts: make(map[domain.Identity]*domain.Attempt),
	}, nil
}

func validateDefinition(def domain.QuizDefinition) error {
	switch {
	case def.Name == "" || def.Description == "":
		return domain.ErrInvalidDefinition
	case def.PassingScore < 0 || def.PassingScore > 100:
		return domain.ErrInvalidDefinition
	case !def.StartTime.Before(def.EndTime):
		return domain.ErrInvalidDefinition
	case def.Duration <= 0 || def.Duration > int64(def.EndTime.Sub(def.StartTime)/time.Second):
		return domain.ErrInvalidDefinition
	case len(def.Questions) == 0:
		return domain.ErrInvalidDefinition
	}
	for _, q := range def.Questions {
		if len(q.Options) == 0 {
			return domain.ErrInvalidDefinition
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return domain.ErrInvalidDefinition
		}
	}
	return nil
}

// Attempt records the student's single submission and returns the scored
// attempt. The guard check and the attempt write happen under one lock, so
// two concurrent calls can never both pass the single-shot precondition.
func (q *Quiz) Attempt(student domain.Identity, answers []int) (domain.Attempt, error) {
	if student.Zero() {
		return domain.Attempt{}, domain.ErrMissingIdentity
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if now.Before(q.def.StartTime) || now.After(q.def.EndTime) {
		return domain.Attempt{}, domain.ErrWindowClosed
	}
	if len(answers) != len(q.def.Questions) {
		return domain.Attempt{}, domain.ErrMalformedAnswers
	}
	for i, a := range answers {
		if a < 0 || a >= len(q.def.Questions[i].Options) {
			return domain.Attempt{}, domain.ErrMalformedAnswers
		}
	}
	if _, ok := q.attempts[student]; ok {
		return domain.Attempt{}, domain.ErrAlreadyAttempted
	}

	correct := 0
	for i, a := range answers {
		if a == q.def.Questions[i].CorrectAnswer {
			correct++
		}
	}
	score := correct * 100 / len(q.def.Questions)

	attempt := domain.Attempt{
		Student:        student,
		Answers:        append([]int(nil), answers...),
		Score:          score,
		Eligible:       score >= q.def.PassingScore,
		SubmittedAt:    now,
		ElapsedSeconds: int64(now.Sub(q.def.StartTime) / time.Second),
	}

	// Construct-then-commit: the registry index and the attempt map are one
	// atomic unit. A registry rejection leaves the quiz untouched.
	if err := q.registry.OnStudentAttended(q.ref, student); err != nil {
		return domain.Attempt{}, err
	}
	q.attempts[student] = &attempt

	q.feed.Publish(domain.Event{
		Type:           domain.EventQuizAttempted,
		QuizRef:        q.ref,
		Student:        student,
		Score:          attempt.Score,
		ElapsedSeconds: attempt.ElapsedSeconds,
		At:             now,
	})
	return attempt, nil
}

// EligibleForCredential reports whether the student has a passing attempt.
// Pure query, no side effects.
func (q *Quiz) EligibleForCredential(student domain.Identity) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	attempt, ok := q.attempts[student]
	return ok && attempt.Eligible
}

// Ref returns the quiz reference assigned by the factory.
func (q *Quiz) Ref() string { return q.ref }

// Teacher returns the identity that created the quiz.
func (q *Quiz) Teacher() domain.Identity { return q.def.Teacher }

// Definition returns a copy of the immutable quiz definition.
func (q *Quiz) Definition() domain.QuizDefinition {
	def := q.def
	def.Questions = copyQuestions(q.def.Questions)
	return def
}

// AttemptOf returns the student's attempt, if any.
func (q *Quiz) AttemptOf(student domain.Identity) (domain.Attempt, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	attempt, ok := q.attempts[student]
	if !ok {
		return domain.Attempt{}, false
	}
	out := *attempt
	out.Answers = append([]int(nil), attempt.Answers...)
	return out, true
}

// AttemptCount returns how many students have attempted the quiz.
func (q *Quiz) AttemptCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.attempts)
}

// Snapshot returns the public read view of the quiz.
func (q *Quiz) Snapshot() domain.QuizSnapshot {
	return domain.QuizSnapshot{
		Ref:          q.ref,
		Definition:   q.Definition(),
		AttemptCount: q.AttemptCount(),
	}
}

func copyQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
