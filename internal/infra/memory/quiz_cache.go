package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizard-service/internal/domain"
)

// SnapshotSource produces public quiz views from the authoritative store
// (the live factory, or a persisted archive).
type SnapshotSource interface {
	QuizSnapshot(ctx context.Context, ref string) (domain.QuizSnapshot, error)
}

// QuizCache caches public quiz snapshots with TTL to keep read traffic off
// the authoritative components.
type QuizCache struct {
	source SnapshotSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSnapshot
}

type cachedSnapshot struct {
	snapshot  domain.QuizSnapshot
	expiresAt time.Time
}

func NewQuizCache(source SnapshotSource, ttl time.Duration) *QuizCache {
	return &QuizCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSnapshot),
	}
}

func (c *QuizCache) QuizSnapshot(ctx context.Context, ref string) (domain.QuizSnapshot, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[ref]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.snapshot, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(ref, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[ref]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.snapshot, nil
		}
		c.mu.RUnlock()

		snapshot, err := c.source.QuizSnapshot(ctx, ref)
		if err != nil {
			return domain.QuizSnapshot{}, err
		}

		c.mu.Lock()
		c.cache[ref] = cachedSnapshot{
			snapshot:  snapshot,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return snapshot, nil
	})
	if err != nil {
		return domain.QuizSnapshot{}, err
	}
	return result.(domain.QuizSnapshot), nil
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
