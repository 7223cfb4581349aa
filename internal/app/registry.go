package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"quizparty-service/internal/domain"
)

// roomCodeRetries bounds how often a colliding code is re-rolled before
// giving up. At 36^6 codes a second collision is already vanishingly rare.
const roomCodeRetries = 10

// RoomRegistry owns every room inside the snapshot: creation, lookup,
// player membership and the stale-room sweep. All session progression goes
// through the SessionEngine; the registry only guards structural invariants
// (capacity, exactly one host, no empty rooms).
type RoomRegistry struct {
	cache  *SnapshotCache
	logger *slog.Logger
	now    func() time.Time
}

func NewRoomRegistry(cache *SnapshotCache, logger *slog.Logger) *RoomRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomRegistry{cache: cache, logger: logger, now: time.Now}
}

// NewRoomRegistryWithClock is test-only for deterministic timestamps.
func NewRoomRegistryWithClock(cache *SnapshotCache, logger *slog.Logger, now func() time.Time) *RoomRegistry {
	r := NewRoomRegistry(cache, logger)
	r.now = now
	return r
}

// CreateRoom builds a room under the given code with the creator as its sole
// host player and records the code in the recent-rooms list. Fails with
// ErrRoomCodeTaken on collision; the caller re-rolls, never reuses.
func (r *RoomRegistry) CreateRoom(ctx context.Context, code, hostName, hostID string, timeLimit int) (domain.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if hostID == "" {
		hostID = newID("guest")
	}

	var created domain.Room
	err := r.cache.Update(ctx, func(snap *domain.Snapshot) error {
		if findRoom(snap, code) != nil {
			return domain.ErrRoomCodeTaken
		}
		now := r.now()
		created = domain.Room{
			ID:       newID("room"),
			Code:     code,
			HostID:   hostID,
			HostName: hostName,
			Players: []domain.Player{{
				ID:     hostID,
				Name:   hostName,
				Avatar: avatarFor(hostName),
				IsHost: true,
			}},
			MaxPlayers:   domain.DefaultMaxPlayers,
			State:        domain.StateWaiting,
			TimeLimit:    timeLimit,
			CreatedAt:    now,
			LastActivity: now,
		}
		snap.Rooms = append(snap.Rooms, created)
		pushRecentRoom(snap, code)
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	r.logger.Info("room created", "code", code, "host", hostName)
	return created, nil
}

// HostRoom generates a fresh unique code and creates a room under it,
// re-rolling explicitly on collision.
func (r *RoomRegistry) HostRoom(ctx context.Context, hostName, hostID string, timeLimit int) (domain.Room, error) {
	var lastErr error
	for i := 0; i < roomCodeRetries; i++ {
		room, err := r.CreateRoom(ctx, GenerateRoomCode(), hostName, hostID, timeLimit)
		if err == nil {
			return room, nil
		}
		if err != domain.ErrRoomCodeTaken {
			return domain.Room{}, err
		}
		lastErr = err
	}
	return domain.Room{}, lastErr
}

// FindRoomByCode returns a copy of the room, or ErrRoomNotFound.
func (r *RoomRegistry) FindRoomByCode(ctx context.Context, code string) (domain.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var found *domain.Room
	err := r.cache.View(ctx, func(snap *domain.Snapshot) {
		if room := findRoom(snap, code); room != nil {
			cp := *room
			cp.Players = append([]domain.Player(nil), room.Players...)
			cp.Results = append([]domain.Player(nil), room.Results...)
			found = &cp
		}
	})
	if err != nil {
		return domain.Room{}, err
	}
	if found == nil {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return *found, nil
}

// UpdateRoom applies mutate against the latest persisted room record and
// refreshes LastActivity. Every room mutation funnels through here so no
// caller can clobber a concurrent change with a stale copy.
func (r *RoomRegistry) UpdateRoom(ctx context.Context, code string, mutate func(room *domain.Room)) (domain.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var updated domain.Room
	err := r.cache.Update(ctx, func(snap *domain.Snapshot) error {
		room := findRoom(snap, code)
		if room == nil {
			return domain.ErrRoomNotFound
		}
		mutate(room)
		room.LastActivity = r.now()
		updated = *room
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return updated, nil
}

// AddPlayerToRoom appends a non-host player, rejecting full or missing rooms.
func (r *RoomRegistry) AddPlayerToRoom(ctx context.Context, code, name, playerID string) (domain.Player, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if playerID == "" {
		playerID = newID("guest")
	}

	var player domain.Player
	err := r.cache.Update(ctx, func(snap *domain.Snapshot) error {
		room := findRoom(snap, code)
		if room == nil {
			return domain.ErrRoomNotFound
		}
		if len(room.Players) >= room.MaxPlayers {
			return domain.ErrRoomFull
		}
		player = domain.Player{
			ID:     playerID,
			Name:   name,
			Avatar: avatarFor(name),
		}
		room.Players = append(room.Players, player)
		room.LastActivity = r.now()
		pushRecentRoom(snap, code)
		return nil
	})
	if err != nil {
		return domain.Player{}, err
	}
	r.logger.Info("player joined", "code", code, "player", name)
	return player, nil
}

// RemovePlayerFromRoom drops the player by id. The last player leaving
// deletes the room; a departing host hands the crown to the next player so
// exactly one host remains.
func (r *RoomRegistry) RemovePlayerFromRoom(ctx context.Context, code, playerID string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	return r.cache.Update(ctx, func(snap *domain.Snapshot) error {
		room := findRoom(snap, code)
		if room == nil {
			return domain.ErrRoomNotFound
		}

		wasHost := false
		kept := room.Players[:0]
		for _, p := range room.Players {
			if p.ID == playerID {
				wasHost = p.IsHost
				continue
			}
			kept = append(kept, p)
		}
		room.Players = kept

		if len(room.Players) == 0 {
			deleteRoom(snap, code)
			r.logger.Info("room emptied, deleting", "code", code)
			return nil
		}
		if wasHost {
			room.Players[0].IsHost = true
			room.HostID = room.Players[0].ID
			room.HostName = room.Players[0].Name
		}
		room.LastActivity = r.now()
		return nil
	})
}

// DeleteRoom removes the room outright and reports whether it existed.
func (r *RoomRegistry) DeleteRoom(ctx context.Context, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	deleted := false
	err := r.cache.Update(ctx, func(snap *domain.Snapshot) error {
		deleted = deleteRoom(snap, code)
		return nil
	})
	return deleted, err
}

// CleanupStaleRooms drops every room idle longer than maxAge and returns how
// many were removed. Run once at process start, not on a timer.
func (r *RoomRegistry) CleanupStaleRooms(ctx context.Context, maxAge time.Duration) (int, error) {
	removed := 0
	err := r.cache.Update(ctx, func(snap *domain.Snapshot) error {
		cutoff := r.now().Add(-maxAge)
		kept := snap.Rooms[:0]
		for _, room := range snap.Rooms {
			if room.LastActivity.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, room)
		}
		snap.Rooms = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logger.Info("stale rooms cleaned", "removed", removed, "max_age", maxAge)
	}
	return removed, nil
}

// ListOpenRooms returns joinable rooms: still waiting and not full.
func (r *RoomRegistry) ListOpenRooms(ctx context.Context) ([]domain.Room, error) {
	var open []domain.Room
	err := r.cache.View(ctx, func(snap *domain.Snapshot) {
		for _, room := range snap.Rooms {
			if room.State == domain.StateWaiting && len(room.Players) < room.MaxPlayers {
				open = append(open, room)
			}
		}
	})
	return open, err
}

// RecentRooms resolves the MRU code list to rooms that still exist,
// most-recent-first.
func (r *RoomRegistry) RecentRooms(ctx context.Context) ([]domain.Room, error) {
	var recent []domain.Room
	err := r.cache.View(ctx, func(snap *domain.Snapshot) {
		for _, code := range snap.RecentRooms {
			if room := findRoom(snap, code); room != nil {
				recent = append(recent, *room)
			}
		}
	})
	return recent, err
}

func findRoom(snap *domain.Snapshot, code string) *domain.Room {
	for i := range snap.Rooms {
		if snap.Rooms[i].Code == code {
			return &snap.Rooms[i]
		}
	}
	return nil
}

func deleteRoom(snap *domain.Snapshot, code string) bool {
	for i := range snap.Rooms {
		if snap.Rooms[i].Code == code {
			snap.Rooms = append(snap.Rooms[:i], snap.Rooms[i+1:]...)
			return true
		}
	}
	return false
}

// pushRecentRoom front-inserts the code, deduplicated and capped.
func pushRecentRoom(snap *domain.Snapshot, code string) {
	filtered := make([]string, 0, len(snap.RecentRooms)+1)
	filtered = append(filtered, code)
	for _, c := range snap.RecentRooms {
		if c != code {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) > domain.RecentRoomsLimit {
		filtered = filtered[:domain.RecentRoomsLimit]
	}
	snap.RecentRooms = filtered
}

// avatarFor defaults a player's avatar to their name's first rune, uppercased.
func avatarFor(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	return strings.ToUpper(string([]rune(name)[0]))
}
