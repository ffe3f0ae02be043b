package memory

import (
	"context"
	"testing"
	"time"

	"quizard-service/internal/domain"
)

func TestQuizCacheCaches(t *testing.T) {
	source := &countingSource{archive: seededArchive(t)}
	cache := NewQuizCache(source, time.Minute)

	if _, err := cache.QuizSnapshot(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source hit once, got %d", source.calls)
	}

	if _, err := cache.QuizSnapshot(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get snapshot 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}
}

func TestQuizCachePropagatesNotFound(t *testing.T) {
	cache := NewQuizCache(NewArchive(), time.Minute)
	if _, err := cache.QuizSnapshot(context.Background(), "quiz-unknown"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestArchiveRecordsQuizzesAndEvents(t *testing.T) {
	archive := NewArchive()
	ctx := context.Background()

	if err := archive.SaveQuiz(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	if err := archive.AppendEvent(ctx, domain.Event{Type: domain.EventQuizCreated, QuizRef: "quiz-1"}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	snapshot, err := archive.QuizSnapshot(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snapshot.Definition.Name != "Test Quiz" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if events := archive.Events(); len(events) != 1 || events[0].Type != domain.EventQuizCreated {
		t.Fatalf("unexpected event log: %v", events)
	}
}

type countingSource struct {
	archive *Archive
	calls   int
}

func (s *countingSource) QuizSnapshot(ctx context.Context, ref string) (domain.QuizSnapshot, error) {
	s.calls++
	return s.archive.QuizSnapshot(ctx, ref)
}

func seededArchive(t *testing.T) *Archive {
	t.Helper()
	archive := NewArchive()
	if err := archive.SaveQuiz(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
	return archive
}

func sampleSnapshot() domain.QuizSnapshot {
	return domain.QuizSnapshot{
		Ref: "quiz-1",
		Definition: domain.QuizDefinition{
			Name:         "Test Quiz",
			Description:  "This is a test quiz",
			PassingScore: 60,
			Duration:     1800,
			StartTime:    time.Unix(1671033600, 0).UTC(),
			EndTime:      time.Unix(1671465600, 0).UTC(),
			Teacher:      "teacher-1",
			Questions: []domain.Question{
				{Prompt: "What is the capital of France?", Options: []string{"Paris", "London", "Berlin", "Rome"}, CorrectAnswer: 0},
			},
		},
	}
}
