package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"

	"quizparty-service/internal/domain"
)

// SnapshotStore abstracts where the full game snapshot lives (in-memory,
// JSON file, Redis, Postgres). Load must return an empty default snapshot
// rather than fail on a missing or corrupt blob.
type SnapshotStore interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

// SnapshotCache serializes every read and mutation of the shared snapshot.
// Reads re-fetch from the store so staleness is bounded by one load; after a
// failed save the cached copy stays authoritative and the next successful
// save persists the accumulated state.
type SnapshotCache struct {
	store  SnapshotStore
	logger *slog.Logger

	mu      sync.Mutex
	current domain.Snapshot
	loaded  bool
	dirty   bool
}

func NewSnapshotCache(store SnapshotStore, logger *slog.Logger) *SnapshotCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{store: store, logger: logger}
}

// View runs fn against the freshest available snapshot. fn must not retain
// references past its return.
func (c *SnapshotCache) View(ctx context.Context, fn func(snap *domain.Snapshot)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshLocked(ctx); err != nil {
		return err
	}
	fn(&c.current)
	return nil
}

// Update runs fn against the freshest snapshot and persists the result. An
// error from fn rolls nothing forward; a save failure is logged and the
// mutated state is kept in memory as the source of truth.
func (c *SnapshotCache) Update(ctx context.Context, fn func(snap *domain.Snapshot) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshLocked(ctx); err != nil {
		return err
	}
	if err := fn(&c.current); err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.current); err != nil {
		c.dirty = true
		c.logger.Warn("snapshot save failed, keeping in-memory state", "error", err)
		return nil
	}
	c.dirty = false
	return nil
}

// refreshLocked re-reads the backing store unless an unsaved mutation is
// pending, in which case the cache wins (last write wins on a single store).
func (c *SnapshotCache) refreshLocked(ctx context.Context) error {
	if c.dirty {
		return nil
	}
	snap, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("snapshot load failed, reinitializing", "error", err)
		if !c.loaded {
			c.current = domain.EmptySnapshot()
			c.loaded = true
		}
		return nil
	}
	c.current = snap
	c.loaded = true
	return nil
}

// newID builds entity ids like "room_9f3a61c2" from a random suffix.
func newID(prefix string) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return prefix + "_" + hex.EncodeToString(buf)
}

// GenerateRoomCode draws a uniform random 6-character code from [A-Z0-9].
// Uniqueness is the caller's problem: collide, re-roll.
func GenerateRoomCode() string {
	buf := make([]byte, domain.RoomCodeLength)
	_, _ = rand.Read(buf)
	code := make([]byte, domain.RoomCodeLength)
	for i, b := range buf {
		code[i] = domain.RoomCodeAlphabet[int(b)%len(domain.RoomCodeAlphabet)]
	}
	return string(code)
}
