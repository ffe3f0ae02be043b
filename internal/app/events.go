package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"quizard-service/internal/domain"
)

// Feed fans state-creating events out to subscribers. Events are append-only
// and never retracted; a slow subscriber loses old events, not new ones.
type Feed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan domain.Event]struct{})}
}

// Subscribe returns a channel receiving every subsequent event. The caller
// must invoke the returned cancel function to avoid leaks.
func (f *Feed) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to all subscribers. When a subscriber's buffer
// is full the oldest pending event is dropped so publishers never block.
func (f *Feed) Publish(event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Archive is a write-behind sink for public quiz snapshots and events. It is
// observability state, never the source of truth; sink failures are logged
// and do not roll back core state.
type Archive interface {
	SaveQuiz(ctx context.Context, snapshot domain.QuizSnapshot) error
	AppendEvent(ctx context.Context, event domain.Event) error
}

// RecordEvents drains the event channel into the archive until the channel
// closes or the context is canceled.
func RecordEvents(ctx context.Context, logger *zap.Logger, archive Archive, events <-chan domain.Event) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := archive.AppendEvent(ctx, event); err != nil {
				logger.Warn("archive event", zap.String("type", event.Type), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
