package app

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"quizparty-service/internal/domain"
)

// ContentSelector names what a game should play: an explicit quiz/poll id, a
// random public pick in a category, or nothing at all, in which case a
// placeholder quiz is generated so the host can always start.
type ContentSelector struct {
	ContentID string
	Type      domain.ContentType
	Category  string
}

// SessionEngine drives rooms through waiting -> playing -> finished. It owns
// no state of its own: every call re-reads the room from the snapshot, so
// staleness is bounded by one read and a vanished room is a silent abort.
type SessionEngine struct {
	cache  *SnapshotCache
	rooms  *RoomRegistry
	logger *slog.Logger
	now    func() time.Time
	rnd    *rand.Rand
}

func NewSessionEngine(cache *SnapshotCache, rooms *RoomRegistry, logger *slog.Logger) *SessionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionEngine{
		cache:  cache,
		rooms:  rooms,
		logger: logger,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSessionEngineWithClock is test-only for deterministic timestamps.
func NewSessionEngineWithClock(cache *SnapshotCache, rooms *RoomRegistry, logger *slog.Logger, now func() time.Time) *SessionEngine {
	e := NewSessionEngine(cache, rooms, logger)
	e.now = now
	return e
}

// StartGame moves a waiting room into playing. Host-only, needs at least two
// players. Content is resolved by the selector; a room that was cloned by
// PlayAgain falls back to its preset content when the selector is empty.
func (e *SessionEngine) StartGame(ctx context.Context, code, hostID string, sel ContentSelector) (domain.Room, error) {
	var started domain.Room
	err := e.cache.Update(ctx, func(snap *domain.Snapshot) error {
		room := findRoom(snap, code)
		if room == nil {
			return domain.ErrRoomNotFound
		}
		if room.HostID != hostID {
			return domain.ErrNotHost
		}
		if room.State != domain.StateWaiting {
			return domain.ErrGameAlreadyStarted
		}
		if len(room.Players) < 2 {
			return domain.ErrNotEnoughPlayers
		}

		if sel.ContentID == "" && room.ContentID != "" {
			sel.ContentID = room.ContentID
			sel.Type = room.ContentType
		}
		ctype, contentID, timeLimit, err := e.selectContent(snap, room, sel)
		if err != nil {
			return err
		}

		now := e.now()
		room.ContentID = contentID
		room.ContentType = ctype
		room.State = domain.StatePlaying
		room.CurrentQuestion = 0
		room.QuestionStartedAt = now
		room.TimeLimit = timeLimit
		room.Results = nil
		room.LastActivity = now
		resetPlayersForQuestion(room)
		started = *room
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	e.logger.Info("game started", "code", code, "content", started.ContentID, "players", len(started.Players))
	return started, nil
}

// SubmitAnswer records a player's single answer for the current question and
// returns the points awarded. Quiz answers score against the live countdown;
// poll answers tally a vote on the option instead.
func (e *SessionEngine) SubmitAnswer(ctx context.Context, code, playerID string, answerIndex int) (int, error) {
	awarded := 0
	err := e.cache.Update(ctx, func(snap *domain.Snapshot) error {
		room := findRoom(snap, code)
		if room == nil {
			return domain.ErrRoomNotFound
		}
		if room.State != domain.StatePlaying {
			return domain.ErrGameNotPlaying
		}
		player := room.FindPlayer(playerID)
		if player == nil {
			return domain.ErrPlayerNotFound
		}
		if player.Answered {
			return domain.ErrAlreadyAnswered
		}

		now := e.now()
		idx := answerIndex
		player.Answered = true
		player.CurrentAnswer = &idx
		room.LastActivity = now

		switch room.ContentType {
		case domain.ContentQuiz:
			quiz := findQuiz(snap, room.ContentID)
			if quiz == nil || room.CurrentQuestion >= len(quiz.Questions) {
				return nil
			}
			question := quiz.Questions[room.CurrentQuestion]
			if answerIndex >= 0 && answerIndex < len(question.Answers) && question.Answers[answerIndex].Correct {
				remaining := domain.SecondsRemaining(room.TimeLimit, room.QuestionStartedAt, now)
				awarded = domain.AnswerPoints(remaining)
				player.Score += awarded
			}
		case domain.ContentPoll:
			poll := findPoll(snap, room.ContentID)
			if poll == nil || room.CurrentQuestion >= len(poll.Questions) {
				return nil
			}
			question := &poll.Questions[room.CurrentQuestion]
			if answerIndex >= 0 && answerIndex < len(question.Options) {
				question.Options[answerIndex].Votes++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return awarded, nil
}

// AdvanceQuestion moves the room past the question at fromIndex, or finishes
// the game when it was the last one. The fromIndex guard makes the call
// idempotent: the all-answered check and the timer expiry can both fire for
// the same question and only the first one advances; the second sees a
// different index and returns the room unchanged. A missing room is a
// silent abort.
func (e *SessionEngine) AdvanceQuestion(ctx context.Context, code string, fromIndex int) (domain.Room, error) {
	var result domain.Room
	finished := false
	err := e.cache.Update(ctx, func(snap *domain.Snapshot) error {
		room := findRoom(snap, code)
		if room == nil {
			return domain.ErrRoomNotFound
		}
		result = *room
		if room.State != domain.StatePlaying || room.CurrentQuestion != fromIndex {
			return nil
		}

		now := e.now()
		if fromIndex+1 < e.questionCount(snap, room) {
			room.CurrentQuestion++
			room.QuestionStartedAt = now
			room.TimeLimit = e.questionTimeLimit(snap, room)
			resetPlayersForQuestion(room)
		} else {
			e.finish(snap, room)
			finished = true
		}
		room.LastActivity = now
		result = *room
		return nil
	})
	if err == domain.ErrRoomNotFound {
		return domain.Room{}, err
	}
	if err != nil {
		return domain.Room{}, err
	}
	if finished {
		e.logger.Info("game finished", "code", code)
	}
	return result, nil
}

// LeaveRoom removes the player; an already-vanished room is not an error
// for a leaving player.
func (e *SessionEngine) LeaveRoom(ctx context.Context, code, playerID string) error {
	err := e.rooms.RemovePlayerFromRoom(ctx, code, playerID)
	if err == domain.ErrRoomNotFound {
		return nil
	}
	return err
}

// PlayAgain clones a finished room's content into a fresh waiting room under
// a new code. Finished rooms are terminal; this is the only way to replay.
func (e *SessionEngine) PlayAgain(ctx context.Context, code, hostID, hostName string) (domain.Room, error) {
	old, err := e.rooms.FindRoomByCode(ctx, code)
	if err != nil {
		return domain.Room{}, err
	}
	fresh, err := e.rooms.HostRoom(ctx, hostName, hostID, old.TimeLimit)
	if err != nil {
		return domain.Room{}, err
	}
	return e.rooms.UpdateRoom(ctx, fresh.Code, func(room *domain.Room) {
		room.ContentID = old.ContentID
		room.ContentType = old.ContentType
	})
}

// finish runs the terminal transition: winners are every player at the
// maximum score, results are the players sorted by score with original join
// order breaking ties, and registered users fold the game into their stats.
func (e *SessionEngine) finish(snap *domain.Snapshot, room *domain.Room) {
	room.State = domain.StateFinished

	results := append([]domain.Player(nil), room.Players...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	room.Results = results

	top := 0
	for _, p := range room.Players {
		if p.Score > top {
			top = p.Score
		}
	}
	for _, p := range room.Players {
		user := findUser(snap, p.ID)
		if user == nil {
			continue // guests keep nothing
		}
		domain.ApplyGameResult(&user.Stats, p.Score, p.Score == top)
	}
}

// selectContent resolves the selector to concrete content, creating a
// placeholder quiz when nothing else is available. Returns the content type,
// id and the first question's time limit.
func (e *SessionEngine) selectContent(snap *domain.Snapshot, room *domain.Room, sel ContentSelector) (domain.ContentType, string, int, error) {
	ctype := sel.Type
	if ctype == "" {
		ctype = domain.ContentQuiz
	}

	if sel.ContentID != "" {
		switch ctype {
		case domain.ContentPoll:
			if poll := findPoll(snap, sel.ContentID); poll != nil {
				return ctype, poll.ID, room.TimeLimit, nil
			}
			return "", "", 0, domain.ErrPollNotFound
		default:
			if quiz := findQuiz(snap, sel.ContentID); quiz != nil {
				return domain.ContentQuiz, quiz.ID, firstQuestionLimit(quiz), nil
			}
			return "", "", 0, domain.ErrQuizNotFound
		}
	}

	if ctype == domain.ContentPoll {
		var candidates []*domain.Poll
		for i := range snap.Polls {
			p := &snap.Polls[i]
			if p.IsPublic && (sel.Category == "" || p.Category == sel.Category) {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) > 0 {
			pick := candidates[e.rnd.Intn(len(candidates))]
			return ctype, pick.ID, room.TimeLimit, nil
		}
		return "", "", 0, domain.ErrPollNotFound
	}

	var candidates []*domain.Quiz
	for i := range snap.Quizzes {
		q := &snap.Quizzes[i]
		if q.IsPublic && (sel.Category == "" || q.Category == sel.Category) {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) > 0 {
		pick := candidates[e.rnd.Intn(len(candidates))]
		return domain.ContentQuiz, pick.ID, firstQuestionLimit(pick), nil
	}

	placeholder := placeholderQuiz(room.HostID, e.now())
	snap.Quizzes = append(snap.Quizzes, placeholder)
	e.logger.Info("no content available, generated placeholder quiz", "quiz", placeholder.ID)
	return domain.ContentQuiz, placeholder.ID, firstQuestionLimit(&placeholder), nil
}

func (e *SessionEngine) questionCount(snap *domain.Snapshot, room *domain.Room) int {
	switch room.ContentType {
	case domain.ContentPoll:
		if poll := findPoll(snap, room.ContentID); poll != nil {
			return len(poll.Questions)
		}
	default:
		if quiz := findQuiz(snap, room.ContentID); quiz != nil {
			return len(quiz.Questions)
		}
	}
	return 0
}

// questionTimeLimit is the limit for the room's current question: quizzes
// carry one per question, polls keep the room-level setting.
func (e *SessionEngine) questionTimeLimit(snap *domain.Snapshot, room *domain.Room) int {
	if room.ContentType == domain.ContentQuiz {
		if quiz := findQuiz(snap, room.ContentID); quiz != nil && room.CurrentQuestion < len(quiz.Questions) {
			return quiz.Questions[room.CurrentQuestion].TimeLimit
		}
	}
	return room.TimeLimit
}

func firstQuestionLimit(q *domain.Quiz) int {
	if len(q.Questions) > 0 {
		return q.Questions[0].TimeLimit
	}
	return 0
}

func resetPlayersForQuestion(room *domain.Room) {
	for i := range room.Players {
		room.Players[i].Answered = false
		room.Players[i].CurrentAnswer = nil
	}
}

func placeholderQuiz(createdBy string, now time.Time) domain.Quiz {
	return domain.Quiz{
		ID:         newID("quiz"),
		Title:      "Quick Quiz",
		Category:   "general",
		Difficulty: "easy",
		Questions: []domain.QuizQuestion{
			{
				Text: "How many planets are in the Solar System?",
				Answers: []domain.QuizAnswer{
					{Text: "7"}, {Text: "8", Correct: true}, {Text: "9"}, {Text: "10"},
				},
				TimeLimit: 20,
			},
			{
				Text: "Which planet is known as the Red Planet?",
				Answers: []domain.QuizAnswer{
					{Text: "Venus"}, {Text: "Jupiter"}, {Text: "Mars", Correct: true}, {Text: "Saturn"},
				},
				TimeLimit: 20,
			},
		},
		CreatedBy: createdBy,
		CreatedAt: now,
	}
}

func findQuiz(snap *domain.Snapshot, id string) *domain.Quiz {
	for i := range snap.Quizzes {
		if snap.Quizzes[i].ID == id {
			return &snap.Quizzes[i]
		}
	}
	return nil
}

func findPoll(snap *domain.Snapshot, id string) *domain.Poll {
	for i := range snap.Polls {
		if snap.Polls[i].ID == id {
			return &snap.Polls[i]
		}
	}
	return nil
}

func findUser(snap *domain.Snapshot, id string) *domain.User {
	for i := range snap.Users {
		if snap.Users[i].ID == id {
			return &snap.Users[i]
		}
	}
	return nil
}
