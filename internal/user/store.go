package user

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/tables/internal/domain"
)

type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]domain.User)}
}

func (m *MemoryStore) LoadUser(_ context.Context, client string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[client]
	if !ok {
		return domain.User{}, ErrNoUser
	}
	return u, nil
}

func (m *MemoryStore) SaveUser(_ context.Context, client string, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[client] = u
	return nil
}

func (m *MemoryStore) RemoveUser(_ context.Context, client string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, client)
	return nil
}

// RedisStore keeps each client's identity as a JSON value.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(r redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		redis:  r,
		prefix: prefix,
	}
}

func (s *RedisStore) LoadUser(ctx context.Context, client string) (domain.User, error) {
	b, err := s.redis.Get(ctx, s.key(client)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return domain.User{}, ErrNoUser
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}

	var u domain.User
	if err := json.Unmarshal(b, &u); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

func (s *RedisStore) SaveUser(ctx context.Context, client string, u domain.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return s.redis.Set(ctx, s.key(client), b, 0).Err()
}

func (s *RedisStore) RemoveUser(ctx context.Context, client string) error {
	return s.redis.Del(ctx, s.key(client)).Err()
}

func (s *RedisStore) key(client string) string {
	return fmt.Sprintf("%s:client:%s:user", s.prefix, client)
}
