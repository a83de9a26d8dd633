package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/model"
)

// KV is the subset of the go-redis client used by the cache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedStore is a read-through Redis cache in front of a PersonStore.
// Redis errors never fail a call; the underlying store stays authoritative.
type CachedStore struct {
	PersonStore
	kv     KV
	ttl    time.Duration
	prefix string
}

// NewCachedStore wraps inner. A zero ttl keeps entries until evicted.
func NewCachedStore(inner PersonStore, kv KV, ttl time.Duration) *CachedStore {
	return &CachedStore{PersonStore: inner, kv: kv, ttl: ttl, prefix: "person:"}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrap(err, "redis: ping")
	}
	return rdb, nil
}

// cachedPerson carries the fields model.Person hides from JSON.
type cachedPerson struct {
	Person      *model.Person `json:"p"`
	CacheKey    string        `json:"k"`
	ReportCount int           `json:"r"`
	CreatedAt   time.Time     `json:"c"`
}

func (c *CachedStore) keyFor(cacheKey string) string { return c.prefix + "key:" + cacheKey }
func (c *CachedStore) idFor(id string) string        { return c.prefix + "id:" + id }

func (c *CachedStore) load(ctx context.Context, key string) *model.Person {
	raw, err := c.kv.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Debug("redis: get failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var cp cachedPerson
	if err := json.Unmarshal(raw, &cp); err != nil || cp.Person == nil {
		return nil
	}
	p := cp.Person
	p.CacheKey = cp.CacheKey
	p.ReportCount = cp.ReportCount
	p.CreatedAt = cp.CreatedAt
	return p
}

func (c *CachedStore) save(ctx context.Context, p *model.Person) {
	raw, err := json.Marshal(cachedPerson{Person: p, CacheKey: p.CacheKey, ReportCount: p.ReportCount, CreatedAt: p.CreatedAt})
	if err != nil {
		return
	}
	for _, key := range []string{c.keyFor(p.CacheKey), c.idFor(p.ID)} {
		if err := c.kv.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			zap.L().Debug("redis: set failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// GetPerson implements PersonStore.
func (c *CachedStore) GetPerson(ctx context.Context, cacheKey string) (*model.Person, error) {
	if p := c.load(ctx, c.keyFor(cacheKey)); p != nil {
		return p, nil
	}
	p, err := c.PersonStore.GetPerson(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	c.save(ctx, p)
	return p, nil
}

// GetPersonByID implements PersonStore.
func (c *CachedStore) GetPersonByID(ctx context.Context, id string) (*model.Person, error) {
	if p := c.load(ctx, c.idFor(id)); p != nil {
		return p, nil
	}
	p, err := c.PersonStore.GetPersonByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(ctx, p)
	return p, nil
}

// PutPerson implements PersonStore.
func (c *CachedStore) PutPerson(ctx context.Context, p *model.Person) error {
	if err := c.PersonStore.PutPerson(ctx, p); err != nil {
		return err
	}
	c.save(ctx, p)
	return nil
}

// PatchAnswer implements PersonStore.
func (c *CachedStore) PatchAnswer(ctx context.Context, id string, patch model.AnswerPatch) error {
	if err := c.PersonStore.PatchAnswer(ctx, id, patch); err != nil {
		return err
	}
	c.refresh(ctx, id)
	return nil
}

// IncrementReportCount implements PersonStore.
func (c *CachedStore) IncrementReportCount(ctx context.Context, id string) (int, error) {
	n, err := c.PersonStore.IncrementReportCount(ctx, id)
	if err != nil {
		return 0, err
	}
	c.refresh(ctx, id)
	return n, nil
}

// refresh reloads id from the inner store into its id entry and drops the
// cache-key entry, which may point at a newer row for the same key.
func (c *CachedStore) refresh(ctx context.Context, id string) {
	p, err := c.PersonStore.GetPersonByID(ctx, id)
	if err != nil {
		_ = c.kv.Del(ctx, c.idFor(id)).Err()
		return
	}
	_ = c.kv.Del(ctx, c.keyFor(p.CacheKey)).Err()
	raw, err := json.Marshal(cachedPerson{Person: p, CacheKey: p.CacheKey, ReportCount: p.ReportCount, CreatedAt: p.CreatedAt})
	if err != nil {
		return
	}
	_ = c.kv.Set(ctx, c.idFor(id), raw, c.ttl).Err()
}
