package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizard-service/internal/domain"
)

// Archive persists public quiz snapshots and the append-only event log as
// JSONB. It is a write-behind projection for external consumers; the live
// components remain the source of truth.
type Archive struct {
	pool *pgxpool.Pool
}

func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

func (a *Archive) SaveQuiz(ctx context.Context, snapshot domain.QuizSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal quiz snapshot: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO quizzes (ref, data) VALUES ($1, $2) ON CONFLICT (ref) DO UPDATE SET data=EXCLUDED.data`,
		snapshot.Ref, data)
	if err != nil {
		return fmt.Errorf("save quiz snapshot: %w", err)
	}
	return nil
}

func (a *Archive) AppendEvent(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO quiz_events (quiz_ref, type, data) VALUES ($1, $2, $3)`,
		event.QuizRef, event.Type, data)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// QuizSnapshot loads an archived quiz view, making the archive usable as a
// cache source.
func (a *Archive) QuizSnapshot(ctx context.Context, ref string) (domain.QuizSnapshot, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE ref=$1`, ref).Scan(&raw)
	if err != nil {
		return domain.QuizSnapshot{}, fmt.Errorf("load quiz snapshot: %w", err)
	}
	var snapshot domain.QuizSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.QuizSnapshot{}, fmt.Errorf("unmarshal quiz snapshot: %w", err)
	}
	return snapshot, nil
}

// EventCount returns how many events have been archived for a quiz.
func (a *Archive) EventCount(ctx context.Context, ref string) (int, error) {
	var n int
	err := a.pool.QueryRow(ctx, `SELECT count(*) FROM quiz_events WHERE quiz_ref=$1`, ref).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
