package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"quizparty-service/internal/domain"
)

// SnapshotStore persists the snapshot as one pretty-printed JSON file.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a half-written blob behind. A missing or unreadable file loads as
// the empty default.
type SnapshotStore struct {
	path   string
	logger *slog.Logger
}

func NewSnapshotStore(path string, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{path: path, logger: logger}
}

func (s *SnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.EmptySnapshot(), nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot file: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.logger.Warn("snapshot file unreadable, starting empty", "path", s.path, "error", err)
		return domain.EmptySnapshot(), nil
	}
	return snap, nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}
