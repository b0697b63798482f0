package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"ham-exam-bot/internal/domain"
	"ham-exam-bot/internal/infra/memory"
)

// PoolCache caches exam pools in Redis and falls back to a loader on a miss.
// Pools are stored as:     SET exam:{examID}:pool      <json ExamPool>
// Questions are stored as: SET exam:{examID}:questions <json []Question>
// Both keys share one jittered TTL so they expire together.
type PoolCache struct {
	client *redis.Client
	loader memory.PoolLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type cachedPool struct {
	pool      domain.ExamPool
	questions []domain.Question
}

func NewPoolCache(client *redis.Client, loader memory.PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) Pool(ctx context.Context, examID string) (domain.ExamPool, error) {
	entry, err := c.get(ctx, examID)
	if err != nil {
		return domain.ExamPool{}, err
	}
	return entry.pool, nil
}

func (c *PoolCache) Questions(ctx context.Context, examID string) ([]domain.Question, error) {
	entry, err := c.get(ctx, examID)
	if err != nil {
		return nil, err
	}
	return entry.questions, nil
}

// Invalidate drops the cached keys of an exam.
func (c *PoolCache) Invalidate(ctx context.Context, examID string) error {
	return c.client.Del(ctx, poolKey(examID), questionsKey(examID)).Err()
}

func (c *PoolCache) get(ctx context.Context, examID string) (cachedPool, error) {
	if entry, ok := c.readCache(ctx, examID); ok {
		return entry, nil
	}

	result, err, _ := c.sf.Do(examID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if entry, ok := c.readCache(ctx, examID); ok {
			return entry, nil
		}

		pool, err := c.loader.Pool(ctx, examID)
		if err != nil {
			return cachedPool{}, err
		}
		questions, err := c.loader.Questions(ctx, examID)
		if err != nil {
			return cachedPool{}, err
		}
		entry := cachedPool{pool: pool, questions: questions}
		if err := c.writeCache(ctx, examID, entry); err != nil {
			log.Printf("pool cache %s: write: %v", examID, err)
		}
		return entry, nil
	})
	if err != nil {
		return cachedPool{}, err
	}
	return result.(cachedPool), nil
}

func (c *PoolCache) readCache(ctx context.Context, examID string) (cachedPool, bool) {
	values, err := c.client.MGet(ctx, poolKey(examID), questionsKey(examID)).Result()
	if err != nil || len(values) != 2 {
		return cachedPool{}, false
	}
	rawPool, ok1 := values[0].(string)
	rawQuestions, ok2 := values[1].(string)
	if !ok1 || !ok2 {
		return cachedPool{}, false
	}
	var entry cachedPool
	if err := json.Unmarshal([]byte(rawPool), &entry.pool); err != nil {
		return cachedPool{}, false
	}
	if err := json.Unmarshal([]byte(rawQuestions), &entry.questions); err != nil {
		return cachedPool{}, false
	}
	return entry, true
}

func (c *PoolCache) writeCache(ctx context.Context, examID string, entry cachedPool) error {
	rawPool, err := json.Marshal(entry.pool)
	if err != nil {
		return fmt.Errorf("marshal pool: %w", err)
	}
	rawQuestions, err := json.Marshal(entry.questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	ttl := c.ttlWithJitter()
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, poolKey(examID), rawPool, ttl)
	pipe.Set(ctx, questionsKey(examID), rawQuestions, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func poolKey(examID string) string {
	return "exam:" + examID + ":pool"
}

func questionsKey(examID string) string {
	return "exam:" + examID + ":questions"
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
