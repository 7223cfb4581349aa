package domain

import (
	"math"
	"time"
)

// MinAnswerPoints is the floor any correct answer earns regardless of timing.
const MinAnswerPoints = 10

// SecondsRemaining derives the countdown for the current question. It is
// recomputed fresh from the question start timestamp rather than decremented,
// so displays self-correct after a delayed or missed tick. A zero timeLimit
// means untimed and always yields zero.
func SecondsRemaining(timeLimit int, startedAt, now time.Time) int {
	if timeLimit <= 0 {
		return 0
	}
	elapsed := int(now.Sub(startedAt) / time.Second)
	if remaining := timeLimit - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// AnswerPoints is the award for a correct answer with the given seconds left
// on the clock: twice the remaining seconds, floored at MinAnswerPoints.
// Untimed questions pass zero remaining and earn the flat minimum.
//
// This is the single scoring rule; the engine awards with it and the sync
// loop displays countdowns from the same SecondsRemaining, so the shown
// timer and the awarded points can never disagree.
func AnswerPoints(secondsRemaining int) int {
	if points := secondsRemaining * 2; points > MinAnswerPoints {
		return points
	}
	return MinAnswerPoints
}

// RecalcStats rewrites the derived fields from their source counters.
func RecalcStats(s *Stats) {
	if s.GamesPlayed <= 0 {
		s.AverageScore = 0
		s.WinRate = 0
		return
	}
	s.AverageScore = int(math.Round(float64(s.TotalScore) / float64(s.GamesPlayed)))
	s.WinRate = int(math.Round(float64(s.GamesWon) / float64(s.GamesPlayed) * 100))
}

// ApplyGameResult folds one finished game into a user's stats and recomputes
// the derived fields.
func ApplyGameResult(s *Stats, score int, won bool) {
	s.GamesPlayed++
	s.TotalScore += score
	if won {
		s.GamesWon++
	}
	if score > s.BestScore {
		s.BestScore = score
	}
	RecalcStats(s)
}
