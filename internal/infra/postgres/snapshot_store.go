package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizparty-service/internal/domain"
)

// SnapshotStore keeps the snapshot as JSONB in a single-row table. The
// whole state is written in one upsert, so there is nothing to keep
// transactionally consistent across rows.
type SnapshotStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewSnapshotStore(pool *pgxpool.Pool, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{pool: pool, logger: logger}
}

func (s *SnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM game_snapshot WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EmptySnapshot(), nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.logger.Warn("snapshot row unreadable, starting empty", "error", err)
		return domain.EmptySnapshot(), nil
	}
	return snap, nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_snapshot (id, data, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		raw)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
