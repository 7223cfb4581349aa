package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quizparty-service/internal/domain"
)

// ContentEditor is the validation gate in front of quiz/poll persistence.
// A draft that fails validation is rejected whole; nothing partial is ever
// written and the stored copy, if any, stays untouched.
type ContentEditor struct {
	cache  *SnapshotCache
	logger *slog.Logger
	now    func() time.Time
}

func NewContentEditor(cache *SnapshotCache, logger *slog.Logger) *ContentEditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentEditor{cache: cache, logger: logger, now: time.Now}
}

// SaveQuiz validates and persists a quiz draft. A draft with an ID replaces
// the stored quiz of that ID; without one it is inserted fresh.
func (e *ContentEditor) SaveQuiz(ctx context.Context, draft domain.Quiz) (domain.Quiz, error) {
	if err := validateQuiz(draft); err != nil {
		return domain.Quiz{}, err
	}

	draft.Title = strings.TrimSpace(draft.Title)
	if draft.ID == "" {
		draft.ID = newID("quiz")
		draft.CreatedAt = e.now()
	}
	err := e.cache.Update(ctx, func(snap *domain.Snapshot) error {
		for i := range snap.Quizzes {
			if snap.Quizzes[i].ID == draft.ID {
				snap.Quizzes[i] = draft
				return nil
			}
		}
		snap.Quizzes = append(snap.Quizzes, draft)
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	e.logger.Info("quiz saved", "id", draft.ID, "title", draft.Title, "questions", len(draft.Questions))
	return draft, nil
}

// SavePoll validates and persists a poll draft. Vote counters are zeroed on
// save: authored polls always start clean.
func (e *ContentEditor) SavePoll(ctx context.Context, draft domain.Poll) (domain.Poll, error) {
	if err := validatePoll(draft); err != nil {
		return domain.Poll{}, err
	}

	draft.Title = strings.TrimSpace(draft.Title)
	for qi := range draft.Questions {
		for oi := range draft.Questions[qi].Options {
			draft.Questions[qi].Options[oi].Votes = 0
		}
	}
	if draft.ID == "" {
		draft.ID = newID("poll")
		draft.CreatedAt = e.now()
	}
	err := e.cache.Update(ctx, func(snap *domain.Snapshot) error {
		for i := range snap.Polls {
			if snap.Polls[i].ID == draft.ID {
				snap.Polls[i] = draft
				return nil
			}
		}
		snap.Polls = append(snap.Polls, draft)
		return nil
	})
	if err != nil {
		return domain.Poll{}, err
	}
	e.logger.Info("poll saved", "id", draft.ID, "title", draft.Title)
	return draft, nil
}

// DeleteQuiz removes the quiz by id.
func (e *ContentEditor) DeleteQuiz(ctx context.Context, id string) error {
	return e.cache.Update(ctx, func(snap *domain.Snapshot) error {
		for i := range snap.Quizzes {
			if snap.Quizzes[i].ID == id {
				snap.Quizzes = append(snap.Quizzes[:i], snap.Quizzes[i+1:]...)
				return nil
			}
		}
		return domain.ErrQuizNotFound
	})
}

// DeletePoll removes the poll by id.
func (e *ContentEditor) DeletePoll(ctx context.Context, id string) error {
	return e.cache.Update(ctx, func(snap *domain.Snapshot) error {
		for i := range snap.Polls {
			if snap.Polls[i].ID == id {
				snap.Polls = append(snap.Polls[:i], snap.Polls[i+1:]...)
				return nil
			}
		}
		return domain.ErrPollNotFound
	})
}

// QuizzesByUser lists quizzes authored by the user.
func (e *ContentEditor) QuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error) {
	var out []domain.Quiz
	err := e.cache.View(ctx, func(snap *domain.Snapshot) {
		for _, q := range snap.Quizzes {
			if q.CreatedBy == userID {
				out = append(out, q)
			}
		}
	})
	return out, err
}

// PollsByUser lists polls authored by the user.
func (e *ContentEditor) PollsByUser(ctx context.Context, userID string) ([]domain.Poll, error) {
	var out []domain.Poll
	err := e.cache.View(ctx, func(snap *domain.Snapshot) {
		for _, p := range snap.Polls {
			if p.CreatedBy == userID {
				out = append(out, p)
			}
		}
	})
	return out, err
}

func validateQuiz(q domain.Quiz) error {
	if err := validateCommon(q.Title, len(q.Questions)); err != nil {
		return err
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", domain.ErrInvalidContent, i+1)
		}
		correct := 0
		for j, answer := range question.Answers {
			if strings.TrimSpace(answer.Text) == "" {
				return fmt.Errorf("%w: question %d answer %d is empty", domain.ErrInvalidContent, i+1, j+1)
			}
			if answer.Correct {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: question %d needs exactly one correct answer", domain.ErrInvalidContent, i+1)
		}
	}
	return nil
}

func validatePoll(p domain.Poll) error {
	if err := validateCommon(p.Title, len(p.Questions)); err != nil {
		return err
	}
	for i, question := range p.Questions {
		if strings.TrimSpace(question.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", domain.ErrInvalidContent, i+1)
		}
		for j, option := range question.Options {
			if strings.TrimSpace(option.Text) == "" {
				return fmt.Errorf("%w: question %d option %d is empty", domain.ErrInvalidContent, i+1, j+1)
			}
		}
	}
	return nil
}

func validateCommon(title string, questions int) error {
	if len(strings.TrimSpace(title)) < 3 {
		return fmt.Errorf("%w: title must be at least 3 characters", domain.ErrInvalidContent)
	}
	if questions == 0 {
		return fmt.Errorf("%w: add at least one question", domain.ErrInvalidContent)
	}
	return nil
}
