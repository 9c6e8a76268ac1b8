package history

import (
	"context"
	"sync"
	"time"

	"careerbot/internal/redis"
)

// KV is the list storage the session store needs. Keys expire after ttl
// without writes or reads.
type KV interface {
	RPush(ctx context.Context, key string, ttl time.Duration, values ...string) error
	LRange(ctx context.Context, key string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisKV stores session lists in Redis.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) RPush(ctx context.Context, key string, ttl time.Duration, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return r.client.RPush(ctx, key, ttl, args...)
}

func (r *RedisKV) LRange(ctx context.Context, key string) ([]string, error) {
	return r.client.LRange(ctx, key, 0, -1)
}

func (r *RedisKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl)
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key)
}

// MemoryKV keeps lists in process memory. Expired keys are dropped lazily and
// swept every sweepEvery writes.
type MemoryKV struct {
	mu      sync.Mutex
	lists   map[string]*memoryList
	writes  int
	nowFunc func() time.Time
}

type memoryList struct {
	values    []string
	expiresAt time.Time
}

const sweepEvery = 128

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{lists: make(map[string]*memoryList), nowFunc: time.Now}
}

func (m *MemoryKV) RPush(_ context.Context, key string, ttl time.Duration, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()

	m.writes++
	if m.writes%sweepEvery == 0 {
		for k, l := range m.lists {
			if l.expired(now) {
				delete(m.lists, k)
			}
		}
	}

	l := m.live(key, now)
	if l == nil {
		l = &memoryList{}
		m.lists[key] = l
	}
	l.values = append(l.values, values...)
	if ttl > 0 {
		l.expiresAt = now.Add(ttl)
	}
	return nil
}

func (m *MemoryKV) LRange(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.live(key, m.nowFunc())
	if l == nil {
		return nil, nil
	}
	out := make([]string, len(l.values))
	copy(out, l.values)
	return out, nil
}

func (m *MemoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	if l := m.live(key, now); l != nil {
		l.expiresAt = now.Add(ttl)
	}
	return nil
}

func (m *MemoryKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, key)
	return nil
}

// Len reports the number of live keys.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	n := 0
	for _, l := range m.lists {
		if !l.expired(now) {
			n++
		}
	}
	return n
}

// live returns the list for key, deleting it first if it expired. Callers hold mu.
func (m *MemoryKV) live(key string, now time.Time) *memoryList {
	l, ok := m.lists[key]
	if !ok {
		return nil
	}
	if l.expired(now) {
		delete(m.lists, key)
		return nil
	}
	return l
}

func (l *memoryList) expired(now time.Time) bool {
	return !l.expiresAt.IsZero() && !now.Before(l.expiresAt)
}
