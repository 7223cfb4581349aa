package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quizparty-service/internal/domain"
)

// DefaultSyncInterval is how often a view re-reads its room.
const DefaultSyncInterval = 3 * time.Second

// RoomUpdate is what a polling tick publishes to the owning view.
type RoomUpdate struct {
	Room        domain.Room
	PlayerCount int
	// CanStart is the host's start-control visibility: still waiting with
	// at least two players.
	CanStart bool
	// SecondsRemaining is the live countdown while playing, derived fresh
	// from the question start timestamp every tick so it never drifts.
	SecondsRemaining int
	AllAnswered      bool
}

// ViewCallbacks receive what the loop observes. OnRoomGone fires exactly
// once, after which the loop has already stopped itself.
type ViewCallbacks struct {
	OnUpdate   func(RoomUpdate)
	OnRoomGone func(code string)
}

// SyncLoop keeps one view current by polling the registry instead of a push
// channel. One instance belongs to one view; starting a new poll implicitly
// cancels the previous one, and a tick that outlives its cancellation never
// publishes (checked against the poll generation, not just the timer).
type SyncLoop struct {
	rooms    *RoomRegistry
	engine   *SessionEngine
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	gen  int
	stop chan struct{}
	done chan struct{}
}

func NewSyncLoop(rooms *RoomRegistry, engine *SessionEngine, interval time.Duration, logger *slog.Logger) *SyncLoop {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncLoop{
		rooms:    rooms,
		engine:   engine,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// NewSyncLoopWithClock is test-only for deterministic countdowns.
func NewSyncLoopWithClock(rooms *RoomRegistry, engine *SessionEngine, interval time.Duration, logger *slog.Logger, now func() time.Time) *SyncLoop {
	l := NewSyncLoop(rooms, engine, interval, logger)
	l.now = now
	return l
}

// StartRoomUpdates begins polling the room and publishing to cb. When
// hostDriver is set, the loop also advances the question once everyone has
// answered or the timer hits zero; the engine's index guard keeps the two
// triggers from double-advancing. An immediate first poll runs before the
// ticker cadence starts.
func (l *SyncLoop) StartRoomUpdates(ctx context.Context, code string, hostDriver bool, cb ViewCallbacks) {
	l.mu.Lock()
	l.stopLocked()
	l.gen++
	gen := l.gen
	stop := make(chan struct{})
	done := make(chan struct{})
	l.stop = stop
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		if !l.tick(ctx, gen, code, hostDriver, cb) {
			return
		}
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !l.tick(ctx, gen, code, hostDriver, cb) {
					return
				}
			}
		}
	}()
}

// StopUpdates cancels the active poll, if any, and waits for its goroutine
// to drain. Safe to call repeatedly and when nothing is running; stopping
// this loop never touches any other independently scheduled loop.
func (l *SyncLoop) StopUpdates() {
	l.mu.Lock()
	done := l.done
	l.stopLocked()
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (l *SyncLoop) stopLocked() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	l.gen++
}

// current reports whether gen is still the active poll. A stale tick must
// not publish: its view is gone or watching something else by now.
func (l *SyncLoop) current(gen int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen
}

// tick performs one poll. Returns false when the loop should stop itself.
func (l *SyncLoop) tick(ctx context.Context, gen int, code string, hostDriver bool, cb ViewCallbacks) bool {
	room, err := l.rooms.FindRoomByCode(ctx, code)
	if err == domain.ErrRoomNotFound {
		if !l.current(gen) {
			return false
		}
		l.mu.Lock()
		if l.gen == gen {
			l.stop = nil
			l.gen++
		}
		l.mu.Unlock()
		l.logger.Info("room gone, stopping updates", "code", code)
		if cb.OnRoomGone != nil {
			cb.OnRoomGone(code)
		}
		return false
	}
	if err != nil {
		l.logger.Warn("room poll failed", "code", code, "error", err)
		return l.current(gen)
	}
	if !l.current(gen) {
		return false
	}

	update := RoomUpdate{
		Room:        room,
		PlayerCount: len(room.Players),
		CanStart:    room.State == domain.StateWaiting && len(room.Players) >= 2,
		AllAnswered: room.AllAnswered(),
	}
	if room.State == domain.StatePlaying {
		update.SecondsRemaining = domain.SecondsRemaining(room.TimeLimit, room.QuestionStartedAt, l.now())
	}
	if cb.OnUpdate != nil {
		cb.OnUpdate(update)
	}

	if hostDriver && l.engine != nil && room.State == domain.StatePlaying {
		timedOut := room.TimeLimit > 0 && update.SecondsRemaining == 0
		if update.AllAnswered || timedOut {
			if _, err := l.engine.AdvanceQuestion(ctx, code, room.CurrentQuestion); err != nil && err != domain.ErrRoomNotFound {
				l.logger.Warn("advance failed", "code", code, "error", err)
			}
		}
	}
	return true
}

// RoomLists is the payload of the room-list screen poll.
type RoomLists struct {
	Open   []domain.Room
	Recent []domain.Room
}

// StartRoomListUpdates polls the joinable and recently-visited room lists
// for the list screen. Shares the single-active-poll rule with
// StartRoomUpdates: a view polls one thing at a time.
func (l *SyncLoop) StartRoomListUpdates(ctx context.Context, cb func(RoomLists)) {
	l.mu.Lock()
	l.stopLocked()
	l.gen++
	gen := l.gen
	stop := make(chan struct{})
	done := make(chan struct{})
	l.stop = stop
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		l.listTick(ctx, gen, cb)
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.listTick(ctx, gen, cb)
			}
		}
	}()
}

func (l *SyncLoop) listTick(ctx context.Context, gen int, cb func(RoomLists)) {
	open, err := l.rooms.ListOpenRooms(ctx)
	if err != nil {
		l.logger.Warn("room list poll failed", "error", err)
		return
	}
	recent, err := l.rooms.RecentRooms(ctx)
	if err != nil {
		l.logger.Warn("recent rooms poll failed", "error", err)
		return
	}
	if !l.current(gen) {
		return
	}
	cb(RoomLists{Open: open, Recent: recent})
}
