package memory

import (
	"context"
	"sync"

	"quizparty-service/internal/domain"
)

// SnapshotStore is an in-memory implementation of app.SnapshotStore.
// It deep-copies through JSON-free struct copies on the snapshot value,
// so callers never share slices with the stored state.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap domain.Snapshot
	set  bool

	// FailSaves makes Save return this error, for exercising the
	// write-failure path in callers.
	FailSaves error
	// FailLoads does the same for Load.
	FailLoads error
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailLoads != nil {
		return domain.Snapshot{}, s.FailLoads
	}
	if !s.set {
		return domain.EmptySnapshot(), nil
	}
	return cloneSnapshot(s.snap), nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves != nil {
		return s.FailSaves
	}
	s.snap = cloneSnapshot(snap)
	s.set = true
	return nil
}

// Saved reports whether a snapshot has ever been written.
func (s *SnapshotStore) Saved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

func cloneSnapshot(snap domain.Snapshot) domain.Snapshot {
	out := domain.Snapshot{
		Users:       make([]domain.User, len(snap.Users)),
		Rooms:       make([]domain.Room, len(snap.Rooms)),
		Quizzes:     make([]domain.Quiz, len(snap.Quizzes)),
		Polls:       make([]domain.Poll, len(snap.Polls)),
		RecentRooms: append([]string(nil), snap.RecentRooms...),
	}
	copy(out.Users, snap.Users)
	for i, quiz := range snap.Quizzes {
		quiz.Questions = append([]domain.QuizQuestion(nil), quiz.Questions...)
		out.Quizzes[i] = quiz
	}
	for i, poll := range snap.Polls {
		poll.Questions = append([]domain.PollQuestion(nil), poll.Questions...)
		out.Polls[i] = poll
	}
	for i, room := range snap.Rooms {
		room.Players = append([]domain.Player(nil), room.Players...)
		room.Results = append([]domain.Player(nil), room.Results...)
		out.Rooms[i] = room
	}
	return out
}
