package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Store persists cart sessions as encoded snapshots.
type Store interface {
	Load(ctx context.Context, id uuid.UUID) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Entries expire after ttl when ttl
// is positive.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]memoryEntry
}

// NewMemoryStore builds an in-process session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[uuid.UUID]memoryEntry{}}
}

func (m *MemoryStore) Load(_ context.Context, id uuid.UUID) (*Cart, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	if ok && !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrCartNotFound
	}
	return Decode(entry.data)
}

func (m *MemoryStore) Save(_ context.Context, c *Cart) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	entry := memoryEntry{data: data}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[c.ID] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

type redisClient interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CartKey(cartID string) string
	LockKey(name string) string
}

// claimTTL bounds how long a crashed replica can hold a cart.
const claimTTL = time.Minute

// RedisStore keeps sessions in Redis so every API replica sees the same cart.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client redisClient, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Load(ctx context.Context, id uuid.UUID) (*Cart, error) {
	raw, err := r.client.Get(ctx, r.client.CartKey(id.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("load cart session: %w", err)
	}
	return Decode([]byte(raw))
}

func (r *RedisStore) Save(ctx context.Context, c *Cart) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.client.CartKey(c.ID.String()), string(data), r.ttl); err != nil {
		return fmt.Errorf("save cart session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, r.client.CartKey(id.String())); err != nil {
		return fmt.Errorf("delete cart session: %w", err)
	}
	return nil
}

// Claim takes the checkout lock for a cart across replicas.
func (r *RedisStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.claimKey(id), "1", claimTTL)
	if err != nil {
		return false, fmt.Errorf("claim cart session: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) Release(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, r.claimKey(id)); err != nil {
		return fmt.Errorf("release cart session: %w", err)
	}
	return nil
}

func (r *RedisStore) claimKey(id uuid.UUID) string {
	return r.client.LockKey("checkout:" + id.String())
}
