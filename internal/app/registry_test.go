package app_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"quizparty-service/internal/app"
	"quizparty-service/internal/domain"
)

func TestGenerateRoomCodeFormat(t *testing.T) {
	valid := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 100; i++ {
		code := app.GenerateRoomCode()
		if !valid.MatchString(code) {
			t.Fatalf("bad room code %q", code)
		}
	}
}

func TestCreateRoomRejectsDuplicateCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	room, err := env.registry.CreateRoom(ctx, "ABC123", "Alice", "u1", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.Code != "ABC123" || !room.Players[0].IsHost {
		t.Fatalf("unexpected room: %+v", room)
	}
	if room.MaxPlayers != domain.DefaultMaxPlayers {
		t.Fatalf("expected default capacity, got %d", room.MaxPlayers)
	}

	if _, err := env.registry.CreateRoom(ctx, "abc123", "Bob", "u2", 0); err != domain.ErrRoomCodeTaken {
		t.Fatalf("expected ErrRoomCodeTaken, got %v", err)
	}
}

func TestRoomCapacity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	room, err := env.registry.CreateRoom(ctx, "ABC123", "Alice", "u1", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 2; i <= domain.DefaultMaxPlayers; i++ {
		name := fmt.Sprintf("Player%d", i)
		if _, err := env.registry.AddPlayerToRoom(ctx, room.Code, name, fmt.Sprintf("u%d", i)); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	if _, err := env.registry.AddPlayerToRoom(ctx, room.Code, "Nine", "u9"); err != domain.ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestFindRoomByCodeNormalizesInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	if _, err := env.registry.CreateRoom(ctx, "ABC123", "Alice", "u1", 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	room, err := env.registry.FindRoomByCode(ctx, "  abc123 ")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if room.Code != "ABC123" {
		t.Fatalf("unexpected room: %+v", room)
	}
	if _, err := env.registry.FindRoomByCode(ctx, "NOSUCH"); err != domain.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestHostLeavingPromotesNextPlayer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	room, _ := env.registry.CreateRoom(ctx, "ABC123", "Alice", "u1", 0)
	env.registry.AddPlayerToRoom(ctx, room.Code, "Bob", "u2")
	env.registry.AddPlayerToRoom(ctx, room.Code, "Cara", "u3")

	if err := env.registry.RemovePlayerFromRoom(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after, err := env.registry.FindRoomByCode(ctx, room.Code)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if after.HostID != "u2" || after.HostName != "Bob" {
		t.Fatalf("expected Bob promoted, got %+v", after)
	}
	hosts := 0
	for _, p := range after.Players {
		if p.IsHost {
			hosts++
		}
	}
	if hosts != 1 {
		t.Fatalf("expected exactly one host, got %d", hosts)
	}
}

func TestLastPlayerLeavingDeletesRoom(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	room, _ := env.registry.CreateRoom(ctx, "ABC123", "Alice", "u1", 0)
	if err := env.registry.RemovePlayerFromRoom(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := env.registry.FindRoomByCode(ctx, room.Code); err != domain.ErrRoomNotFound {
		t.Fatalf("expected room deleted, got %v", err)
	}
}

func TestRecentRoomsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	for i := 1; i <= 7; i++ {
		code := fmt.Sprintf("ROOM0%d", i)
		if _, err := env.registry.CreateRoom(ctx, code, "Alice", fmt.Sprintf("h%d", i), 0); err != nil {
			t.Fatalf("create %s: %v", code, err)
		}
	}
	// Re-visiting an old room moves it to the front without duplicating it.
	if _, err := env.registry.AddPlayerToRoom(ctx, "ROOM04", "Bob", "u2"); err != nil {
		t.Fatalf("join: %v", err)
	}

	recent, err := env.registry.RecentRooms(ctx)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != domain.RecentRoomsLimit {
		t.Fatalf("expected %d recent rooms, got %d", domain.RecentRoomsLimit, len(recent))
	}
	want := []string{"ROOM04", "ROOM07", "ROOM06", "ROOM05", "ROOM03"}
	for i, room := range recent {
		if room.Code != want[i] {
			t.Fatalf("recent[%d] = %s, want %s", i, room.Code, want[i])
		}
	}
}

func TestListOpenRoomsSkipsRunningAndFull(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seedQuiz(t)

	env.registry.CreateRoom(ctx, "WAIT01", "Alice", "u1", 0)

	playing, _ := env.registry.CreateRoom(ctx, "PLAY01", "Bob", "u2", 0)
	env.registry.AddPlayerToRoom(ctx, playing.Code, "Cara", "u3")
	if _, err := env.engine.StartGame(ctx, playing.Code, "u2", app.ContentSelector{ContentID: "quiz_seed"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	full, _ := env.registry.CreateRoom(ctx, "FULL01", "Dan", "u4", 0)
	for i := 2; i <= domain.DefaultMaxPlayers; i++ {
		env.registry.AddPlayerToRoom(ctx, full.Code, fmt.Sprintf("P%d", i), fmt.Sprintf("f%d", i))
	}

	open, err := env.registry.ListOpenRooms(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 1 || open[0].Code != "WAIT01" {
		t.Fatalf("expected only WAIT01 open, got %+v", open)
	}
}

func TestCleanupStaleRooms(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.registry.CreateRoom(ctx, "OLD001", "Alice", "u1", 0)
	env.clock.Advance(2 * time.Hour)
	env.registry.CreateRoom(ctx, "NEW001", "Bob", "u2", 0)

	removed, err := env.registry.CleanupStaleRooms(ctx, time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := env.registry.FindRoomByCode(ctx, "OLD001"); err != domain.ErrRoomNotFound {
		t.Fatalf("stale room survived: %v", err)
	}
	if _, err := env.registry.FindRoomByCode(ctx, "NEW001"); err != nil {
		t.Fatalf("fresh room lost: %v", err)
	}
}

func TestHostRoomGeneratesUniqueCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		room, err := env.registry.HostRoom(ctx, "Alice", fmt.Sprintf("h%d", i), 0)
		if err != nil {
			t.Fatalf("host: %v", err)
		}
		if seen[room.Code] {
			t.Fatalf("duplicate code %s handed out", room.Code)
		}
		seen[room.Code] = true
	}
}
