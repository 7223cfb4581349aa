package domain

import "time"

// GameState is the lifecycle of a room. Transitions only move forward:
// waiting -> playing -> finished. A finished room is never reused; playing
// the same content again means creating a fresh room.
type GameState string

const (
	StateWaiting  GameState = "waiting"
	StatePlaying  GameState = "playing"
	StateFinished GameState = "finished"
)

// ContentType tags which aggregate a room plays.
type ContentType string

const (
	ContentQuiz ContentType = "quiz"
	ContentPoll ContentType = "poll"
)

const (
	// RoomCodeLength is the length of the public join handle.
	RoomCodeLength = 6
	// RoomCodeAlphabet is the symbol set room codes are drawn from.
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultMaxPlayers caps the player list of every room.
	DefaultMaxPlayers = 8
	// RecentRoomsLimit caps the most-recently-used room code list.
	RecentRoomsLimit = 5
)

// Stats accumulates a user's results across games. AverageScore and WinRate
// are derived from the counters and must be recomputed through RecalcStats
// after every change, never written independently.
type Stats struct {
	GamesPlayed  int `json:"gamesPlayed"`
	GamesWon     int `json:"gamesWon"`
	TotalScore   int `json:"totalScore"`
	AverageScore int `json:"averageScore"`
	BestScore    int `json:"bestScore"`
	WinRate      int `json:"winRate"`
}

// User is a cross-session account. IsGuest marks an ephemeral identity that
// is never written to the snapshot.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Email     string    `json:"email,omitempty"`
	Avatar    string    `json:"avatar"`
	IsGuest   bool      `json:"isGuest"`
	Stats     Stats     `json:"stats"`
	CreatedAt time.Time `json:"createdAt"`
}

// Player is a participant's in-room identity, embedded in a Room. Answered
// and CurrentAnswer are per-question transients reset on every advance.
type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
	IsHost        bool   `json:"isHost"`
	Score         int    `json:"score"`
	Ready         bool   `json:"ready"`
	Answered      bool   `json:"answered"`
	CurrentAnswer *int   `json:"currentAnswer,omitempty"`
}

// Room is one game/poll session, identified by its 6-character code.
type Room struct {
	ID                string      `json:"id"`
	Code              string      `json:"code"`
	HostID            string      `json:"hostId"`
	HostName          string      `json:"hostName"`
	Players           []Player    `json:"players"`
	MaxPlayers        int         `json:"maxPlayers"`
	State             GameState   `json:"gameState"`
	ContentID         string      `json:"contentId,omitempty"`
	ContentType       ContentType `json:"contentType,omitempty"`
	CurrentQuestion   int         `json:"currentQuestionIndex"`
	TimeLimit         int         `json:"timeLimit"` // seconds per question, 0 = untimed
	QuestionStartedAt time.Time   `json:"questionStartTime"`
	CreatedAt         time.Time   `json:"createdAt"`
	LastActivity      time.Time   `json:"lastActivity"`
	Results           []Player    `json:"results,omitempty"`
}

// FindPlayer returns a pointer into Players, or nil.
func (r *Room) FindPlayer(playerID string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == playerID {
			return &r.Players[i]
		}
	}
	return nil
}

// AllAnswered reports whether every current player has answered the current
// question. An empty room never counts as all-answered.
func (r *Room) AllAnswered() bool {
	if len(r.Players) == 0 {
		return false
	}
	for i := range r.Players {
		if !r.Players[i].Answered {
			return false
		}
	}
	return true
}

// QuizAnswer is one answer slot of a quiz question.
type QuizAnswer struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// QuizQuestion is an MCQ with exactly one correct answer.
type QuizQuestion struct {
	Text      string       `json:"question"`
	Answers   []QuizAnswer `json:"answers"`
	TimeLimit int          `json:"timeLimit"` // seconds, 0 = untimed
}

// CorrectIndex returns the index of the answer flagged correct, or -1.
func (q QuizQuestion) CorrectIndex() int {
	for i, a := range q.Answers {
		if a.Correct {
			return i
		}
	}
	return -1
}

// Quiz is an authored question set consumed by rooms.
type Quiz struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category"`
	Difficulty  string         `json:"difficulty"`
	Questions   []QuizQuestion `json:"questions"`
	CreatedBy   string         `json:"createdBy"`
	IsPublic    bool           `json:"isPublic"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PollOption is a votable choice. Votes always start at zero.
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollQuestion has no correct answer; submissions are tallied as votes.
type PollQuestion struct {
	Text           string       `json:"question"`
	Options        []PollOption `json:"options"`
	MultipleChoice bool         `json:"multipleChoice"`
	ShowResults    bool         `json:"showResults"`
}

// Poll is an authored question set whose answers are opinions, not facts.
type Poll struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category"`
	Questions   []PollQuestion `json:"questions"`
	CreatedBy   string         `json:"createdBy"`
	IsPublic    bool           `json:"isPublic"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Snapshot is the full persisted state: one blob per installation.
// RecentRooms is most-recent-first and capped at RecentRoomsLimit.
type Snapshot struct {
	Users       []User   `json:"users"`
	Rooms       []Room   `json:"rooms"`
	Quizzes     []Quiz   `json:"quizzes"`
	Polls       []Poll   `json:"polls"`
	RecentRooms []string `json:"recentRooms"`
}

// EmptySnapshot returns the default state a store falls back to when its
// backing blob is missing or unreadable.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Users:       []User{},
		Rooms:       []Room{},
		Quizzes:     []Quiz{},
		Polls:       []Poll{},
		RecentRooms: []string{},
	}
}
