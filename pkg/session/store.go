package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store persists session attributes keyed by session id
type Store interface {
	// Get returns the attribute value and whether it was present
	Get(ctx context.Context, id, key string) ([]byte, bool, error)
	// Set stores an attribute and extends the session lifetime
	Set(ctx context.Context, id, key string, value []byte) error
	// Remove deletes an attribute; removing a missing attribute is not an error
	Remove(ctx context.Context, id, key string) error
	// Exists reports whether the session was stored and has not expired
	Exists(ctx context.Context, id string) (bool, error)
	// Delete drops the whole session
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each session in a Redis hash named session:<id>.
// The hash expires after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: "session",
	}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

// Get returns the attribute value and refreshes the session expiry
func (s *RedisStore) Get(ctx context.Context, id, key string) ([]byte, bool, error) {
	redisKey := s.key(id)
	data, err := s.client.HGet(ctx, redisKey, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("redis hget failed: %w", err)
	}

	if err := s.client.Expire(ctx, redisKey, s.ttl).Err(); err != nil {
		return nil, false, fmt.Errorf("redis expire failed: %w", err)
	}
	return data, true, nil
}

// Set stores an attribute and refreshes the session expiry
func (s *RedisStore) Set(ctx context.Context, id, key string, value []byte) error {
	redisKey := s.key(id)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKey, key, value)
	pipe.Expire(ctx, redisKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

// Remove deletes an attribute
func (s *RedisStore) Remove(ctx context.Context, id, key string) error {
	if err := s.client.HDel(ctx, s.key(id), key).Err(); err != nil {
		return fmt.Errorf("redis hdel failed: %w", err)
	}
	return nil
}

// Exists reports whether the session hash is present
func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// Delete drops the session hash
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// MemoryStore keeps sessions in process memory.
// Expired sessions are invisible immediately and reclaimed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	values    map[string][]byte
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// live returns the session if it exists and has not expired; callers hold the lock
func (s *MemoryStore) live(id string) *memorySession {
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, id)
		return nil
	}
	return sess
}

// Get returns the attribute value and refreshes the session expiry
func (s *MemoryStore) Get(_ context.Context, id, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(id)
	if sess == nil {
		return nil, false, nil
	}
	value, ok := sess.values[key]
	if !ok {
		return nil, false, nil
	}
	sess.expiresAt = s.now().Add(s.ttl)
	return append([]byte(nil), value...), true, nil
}

// Set stores an attribute and refreshes the session expiry
func (s *MemoryStore) Set(_ context.Context, id, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(id)
	if sess == nil {
		sess = &memorySession{values: make(map[string][]byte)}
		s.sessions[id] = sess
	}
	sess.values[key] = append([]byte(nil), value...)
	sess.expiresAt = s.now().Add(s.ttl)
	return nil
}

// Remove deletes an attribute
func (s *MemoryStore) Remove(_ context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.live(id); sess != nil {
		delete(sess.values, key)
	}
	return nil
}

// Exists reports whether the session is live
func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(id) != nil, nil
}

// Delete drops the session
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions, including expired ones not yet swept
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
