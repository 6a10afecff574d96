package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/redis/go-redis/v9"
)

// TodoLists caches list results per user. key identifies the filter; all of a
// user's keys are dropped together whenever one of their todos changes.
//
// Callers read Generation before querying the store and pass it to Set. Set
// is a no-op when InvalidateUser ran in between.
type TodoLists interface {
	Get(ctx context.Context, userID, key string) ([]todo.Todo, bool, error)
	Generation(ctx context.Context, userID string) (uint64, error)
	Set(ctx context.Context, userID, key string, gen uint64, items []todo.Todo) error
	InvalidateUser(ctx context.Context, userID string) error
}

type MemoryLists struct {
	c *Cache
}

func NewMemoryLists(ttl time.Duration) *MemoryLists {
	return &MemoryLists{c: New(ttl)}
}

func memoryPrefix(userID string) string {
	return "todos:" + userID + "|"
}

func (m *MemoryLists) Get(_ context.Context, userID, key string) ([]todo.Todo, bool, error) {
	v, ok := m.c.Get(memoryPrefix(userID) + key)
	if !ok {
		return nil, false, nil
	}

	items, ok := v.([]todo.Todo)
	return items, ok, nil
}

func (m *MemoryLists) Generation(_ context.Context, userID string) (uint64, error) {
	return m.c.Generation(memoryPrefix(userID)), nil
}

func (m *MemoryLists) Set(_ context.Context, userID, key string, gen uint64, items []todo.Todo) error {
	// copy so later mutation of the caller's slice cannot leak into the cache
	cp := make([]todo.Todo, len(items))
	copy(cp, items)

	m.c.SetIfGeneration(memoryPrefix(userID), gen, key, cp)
	return nil
}

func (m *MemoryLists) InvalidateUser(_ context.Context, userID string) error {
	m.c.InvalidatePrefix(memoryPrefix(userID))
	return nil
}

// RedisLists stores one hash per user: field = filter key, value = JSON list.
// A sibling counter key is bumped on every invalidation; writes carrying an
// older counter are dropped by setIfGen.
type RedisLists struct {
	rdb *redis.Client
	ttl time.Duration
}

// KEYS[1] counter, KEYS[2] list hash.
// ARGV[1] expected counter, ARGV[2] field, ARGV[3] payload, ARGV[4] ttl ms.
var setIfGen = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (cur or '0') ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return 1
`)

func NewRedisLists(rdb *redis.Client, ttl time.Duration) *RedisLists {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLists{rdb: rdb, ttl: ttl}
}

// both keys share a hash tag so the script stays on one cluster slot
func redisKey(userID string) string {
	return "todohub:todos:{" + userID + "}:list:v2"
}

func redisGenKey(userID string) string {
	return "todohub:todos:{" + userID + "}:gen"
}

func (r *RedisLists) Get(ctx context.Context, userID, key string) ([]todo.Todo, bool, error) {
	b, err := r.rdb.HGet(ctx, redisKey(userID), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var items []todo.Todo
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, false, err
	}

	return items, true, nil
}

func (r *RedisLists) Generation(ctx context.Context, userID string) (uint64, error) {
	gen, err := r.rdb.Get(ctx, redisGenKey(userID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisLists) Set(ctx context.Context, userID, key string, gen uint64, items []todo.Todo) error {
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}

	keys := []string{redisGenKey(userID), redisKey(userID)}
	args := []any{strconv.FormatUint(gen, 10), key, b, r.ttl.Milliseconds()}

	return setIfGen.Run(ctx, r.rdb, keys, args...).Err()
}

func (r *RedisLists) InvalidateUser(ctx context.Context, userID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, redisGenKey(userID))
	pipe.Del(ctx, redisKey(userID))

	_, err := pipe.Exec(ctx)
	return err
}

// Instrumented counts hits and misses of the wrapped cache.
type Instrumented struct {
	next    TodoLists
	prom    *observability.Prom
	backend string
}

func NewInstrumented(next TodoLists, prom *observability.Prom, backend string) *Instrumented {
	return &Instrumented{next: next, prom: prom, backend: backend}
}

func (i *Instrumented) Get(ctx context.Context, userID, key string) ([]todo.Todo, bool, error) {
	items, ok, err := i.next.Get(ctx, userID, key)

	if i.prom != nil {
		switch {
		case err != nil:
			i.prom.CacheResults.WithLabelValues(i.backend, "error").Inc()
		case ok:
			i.prom.CacheResults.WithLabelValues(i.backend, "hit").Inc()
		default:
			i.prom.CacheResults.WithLabelValues(i.backend, "miss").Inc()
		}
	}

	return items, ok, err
}

func (i *Instrumented) Generation(ctx context.Context, userID string) (uint64, error) {
	return i.next.Generation(ctx, userID)
}

func (i *Instrumented) Set(ctx context.Context, userID, key string, gen uint64, items []todo.Todo) error {
	return i.next.Set(ctx, userID, key, gen, items)
}

func (i *Instrumented) InvalidateUser(ctx context.Context, userID string) error {
	return i.next.InvalidateUser(ctx, userID)
}
