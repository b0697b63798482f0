package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"ham-exam-bot/internal/domain"
)

// PoolLoader fetches exam pools from a backing store.
type PoolLoader interface {
	Pool(ctx context.Context, examID string) (domain.ExamPool, error)
	Questions(ctx context.Context, examID string) ([]domain.Question, error)
}

// PoolCache caches pools and their questions with TTL to avoid repeated DB
// hits. It implements app.QuestionPool.
type PoolCache struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	pool      domain.ExamPool
	questions []domain.Question
	expiresAt time.Time
}

func NewPoolCache(loader PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (c *PoolCache) Pool(ctx context.Context, examID string) (domain.ExamPool, error) {
	entry, err := c.get(ctx, examID)
	if err != nil {
		return domain.ExamPool{}, err
	}
	return entry.pool, nil
}

// Questions returns a copy so sessions can reorder it freely.
func (c *PoolCache) Questions(ctx context.Context, examID string) ([]domain.Question, error) {
	entry, err := c.get(ctx, examID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, len(entry.questions))
	copy(out, entry.questions)
	return out, nil
}

func (c *PoolCache) get(ctx context.Context, examID string) (cachedPool, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[examID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(examID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[examID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry, nil
		}
		c.mu.RUnlock()

		pool, err := c.loader.Pool(ctx, examID)
		if err != nil {
			return cachedPool{}, err
		}
		questions, err := c.loader.Questions(ctx, examID)
		if err != nil {
			return cachedPool{}, err
		}

		entry := cachedPool{
			pool:      pool,
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Lock()
		c.cache[examID] = entry
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return cachedPool{}, err
	}
	return result.(cachedPool), nil
}

// Invalidate drops a cached pool, e.g. after an import.
func (c *PoolCache) Invalidate(examID string) {
	c.mu.Lock()
	delete(c.cache, examID)
	c.mu.Unlock()
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticPoolLoader is a loader backed by in-memory pools (useful for tests/demos).
type StaticPoolLoader struct {
	pools     map[string]domain.ExamPool
	questions map[string][]domain.Question
}

func NewStaticPoolLoader(pools []domain.ExamPool, questions []domain.Question) *StaticPoolLoader {
	l := &StaticPoolLoader{
		pools:     make(map[string]domain.ExamPool, len(pools)),
		questions: make(map[string][]domain.Question),
	}
	for _, p := range pools {
		l.pools[p.ID] = p
	}
	for _, q := range questions {
		l.questions[q.PoolID] = append(l.questions[q.PoolID], q)
	}
	return l
}

func (l *StaticPoolLoader) Pool(_ context.Context, examID string) (domain.ExamPool, error) {
	if pool, ok := l.pools[examID]; ok {
		return pool, nil
	}
	return domain.ExamPool{}, domain.ErrPoolNotFound
}

// Questions skips archived questions, like the relational accessor.
func (l *StaticPoolLoader) Questions(_ context.Context, examID string) ([]domain.Question, error) {
	if _, ok := l.pools[examID]; !ok {
		return nil, domain.ErrPoolNotFound
	}
	var out []domain.Question
	for _, q := range l.questions[examID] {
		if !q.Archived {
			out = append(out, q)
		}
	}
	return out, nil
}
