package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/myfocus-app/service-billing/internal/domain"
	habitDomain "github.com/myfocus-app/service-billing/internal/domain/habit"
)

// RedisSnapshotStore keeps one JSON habit snapshot per user in Redis.
// Snapshots have no TTL: a habit lives until it is reset.
type RedisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore creates a RedisSnapshotStore.
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

func habitKey(userID uuid.UUID) string {
	return fmt.Sprintf("habit:%s", userID)
}

// Load returns the user's habit snapshot.
func (s *RedisSnapshotStore) Load(ctx context.Context, userID uuid.UUID) (*habitDomain.Habit, error) {
	data, err := s.client.Get(ctx, habitKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewNotFoundError("habit", userID.String())
		}
		return nil, fmt.Errorf("failed to load habit snapshot: %w", err)
	}

	var h habitDomain.Habit
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to decode habit snapshot: %w", err)
	}
	return &h, nil
}

// Save persists the full snapshot, replacing any previous one.
func (s *RedisSnapshotStore) Save(ctx context.Context, userID uuid.UUID, h *habitDomain.Habit) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to encode habit snapshot: %w", err)
	}
	if err := s.client.Set(ctx, habitKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save habit snapshot: %w", err)
	}
	return nil
}

// Clear removes the snapshot.
func (s *RedisSnapshotStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, habitKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear habit snapshot: %w", err)
	}
	return nil
}

// MemorySnapshotStore is an in-process SnapshotStore for tests and local
// development without Redis. Snapshots round-trip through JSON so the
// serialized shape matches the Redis store.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID][]byte
}

// NewMemorySnapshotStore creates an empty MemorySnapshotStore.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{items: make(map[uuid.UUID][]byte)}
}

// Load returns the user's habit snapshot.
func (s *MemorySnapshotStore) Load(ctx context.Context, userID uuid.UUID) (*habitDomain.Habit, error) {
	s.mu.RLock()
	data, ok := s.items[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("habit", userID.String())
	}

	var h habitDomain.Habit
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Save persists the full snapshot.
func (s *MemorySnapshotStore) Save(ctx context.Context, userID uuid.UUID, h *habitDomain.Habit) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[userID] = data
	s.mu.Unlock()
	return nil
}

// Clear removes the snapshot.
func (s *MemorySnapshotStore) Clear(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	delete(s.items, userID)
	s.mu.Unlock()
	return nil
}
