package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizard-service/internal/domain"
)

// SnapshotSource produces public quiz views from the authoritative store.
type SnapshotSource interface {
	QuizSnapshot(ctx context.Context, ref string) (domain.QuizSnapshot, error)
}

// QuizCache caches public quiz snapshots in Redis as JSON under
// quiz:{ref}:snapshot and falls back to the source on cache miss.
type QuizCache struct {
	client *redis.Client
	source SnapshotSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizCache(client *redis.Client, source SnapshotSource, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) QuizSnapshot(ctx context.Context, ref string) (domain.QuizSnapshot, error) {
	key := c.key(ref)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var snapshot domain.QuizSnapshot
		if err := json.Unmarshal(raw, &snapshot); err == nil {
			return snapshot, nil
		}
	}

	result, err, _ := c.sf.Do(ref, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var snapshot domain.QuizSnapshot
			if err := json.Unmarshal(raw, &snapshot); err == nil {
				return snapshot, nil
			}
		}

		snapshot, err := c.source.QuizSnapshot(ctx, ref)
		if err != nil {
			return domain.QuizSnapshot{}, err
		}

		if data, err := json.Marshal(snapshot); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return snapshot, nil
	})
	if err != nil {
		return domain.QuizSnapshot{}, err
	}
	return result.(domain.QuizSnapshot), nil
}

func (c *QuizCache) key(ref string) string {
	return "quiz:" + ref + ":snapshot"
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
