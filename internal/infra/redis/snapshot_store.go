package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizparty-service/internal/domain"
)

// snapshotKey holds the whole game state as one JSON blob.
const snapshotKey = "quizparty:snapshot"

// SnapshotStore persists the snapshot in Redis under a single key.
// Concurrent loads are collapsed through singleflight so a burst of views
// costs one round trip. A missing or unreadable blob loads as the empty
// default; it is never treated as an error.
type SnapshotStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
	sf     singleflight.Group
}

func NewSnapshotStore(client *redis.Client, logger *slog.Logger, ttl time.Duration) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{client: client, logger: logger, ttl: ttl}
}

func (s *SnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	result, err, _ := s.sf.Do(snapshotKey, func() (interface{}, error) {
		raw, err := s.client.Get(ctx, snapshotKey).Bytes()
		if err == redis.Nil {
			return domain.EmptySnapshot(), nil
		}
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("redis get: %w", err)
		}
		var snap domain.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			s.logger.Warn("snapshot blob unreadable, starting empty", "error", err)
			return domain.EmptySnapshot(), nil
		}
		return snap, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return result.(domain.Snapshot), nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
