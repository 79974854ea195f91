package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "clinic:directory"

// Store caches the latest directory snapshot in Redis so a restarted
// process can serve bookings before documents are re-read.
type Store struct {
	redis *redis.Client
	key   string
}

// NewStore creates a Redis-backed snapshot store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient, key: snapshotKey}
}

// Load returns the cached snapshot. ok is false when nothing is cached.
func (s *Store) Load(ctx context.Context) (snap Snapshot, ok bool, err error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("clinic: load snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("clinic: unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// Save writes dir as the cached snapshot.
func (s *Store) Save(ctx context.Context, dir *Directory) error {
	data, err := json.Marshal(dir.Snapshot())
	if err != nil {
		return fmt.Errorf("clinic: marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: save snapshot: %w", err)
	}
	return nil
}

// Clear drops the cached snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clinic: clear snapshot: %w", err)
	}
	return nil
}
