package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quizparty-service/internal/domain"
)

// PasswordStrength buckets a password for the registration form.
type PasswordStrength string

const (
	PasswordWeak   PasswordStrength = "weak"
	PasswordMedium PasswordStrength = "medium"
	PasswordStrong PasswordStrength = "strong"
)

const minPasswordLength = 6

// Accounts covers registration, login, guest entry and profile edits.
// Guests live only in the caller's session and never touch the snapshot.
type Accounts struct {
	cache  *SnapshotCache
	logger *slog.Logger
	now    func() time.Time
}

func NewAccounts(cache *SnapshotCache, logger *slog.Logger) *Accounts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accounts{cache: cache, logger: logger, now: time.Now}
}

// Register creates a persisted account with a unique username.
func (a *Accounts) Register(ctx context.Context, username, password, email string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrInvalidContent)
	}
	if len(password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidContent, minPasswordLength)
	}

	user := domain.User{
		ID:        newID("user"),
		Username:  username,
		Password:  password,
		Email:     strings.TrimSpace(email),
		Avatar:    avatarFor(username),
		CreatedAt: a.now(),
	}
	err := a.cache.Update(ctx, func(snap *domain.Snapshot) error {
		for i := range snap.Users {
			if snap.Users[i].Username == username {
				return domain.ErrUsernameTaken
			}
		}
		snap.Users = append(snap.Users, user)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	a.logger.Info("user registered", "user", username)
	return user, nil
}

// Login matches username and password against the stored accounts.
func (a *Accounts) Login(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	var found *domain.User
	err := a.cache.View(ctx, func(snap *domain.Snapshot) {
		for i := range snap.Users {
			if snap.Users[i].Username == username && snap.Users[i].Password == password {
				cp := snap.Users[i]
				found = &cp
				return
			}
		}
	})
	if err != nil {
		return domain.User{}, err
	}
	if found == nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return *found, nil
}

// Guest builds an ephemeral identity that is never persisted.
func (a *Accounts) Guest(name string) domain.User {
	name = strings.TrimSpace(name)
	return domain.User{
		ID:       newID("guest"),
		Username: name,
		Avatar:   avatarFor(name),
		IsGuest:  true,
	}
}

// FindUserByID resolves a stored account.
func (a *Accounts) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	var found *domain.User
	err := a.cache.View(ctx, func(snap *domain.Snapshot) {
		if user := findUser(snap, id); user != nil {
			cp := *user
			found = &cp
		}
	})
	if err != nil {
		return domain.User{}, err
	}
	if found == nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *found, nil
}

// UpdateProfile changes the display name and/or avatar glyph. Empty fields
// are left as they are.
func (a *Accounts) UpdateProfile(ctx context.Context, userID, username, avatar string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username != "" && len([]rune(username)) < 2 {
		return domain.User{}, fmt.Errorf("%w: name must be at least 2 characters", domain.ErrInvalidContent)
	}

	var updated domain.User
	err := a.cache.Update(ctx, func(snap *domain.Snapshot) error {
		user := findUser(snap, userID)
		if user == nil {
			return domain.ErrUserNotFound
		}
		if username != "" {
			user.Username = username
		}
		if avatar != "" {
			user.Avatar = avatar
		}
		updated = *user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// CheckPasswordStrength scores length plus character-class variety.
func CheckPasswordStrength(password string) PasswordStrength {
	score := 0
	if len(password) >= 6 {
		score++
	}
	if len(password) >= 8 {
		score++
	}
	if strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		score++
	}
	if strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		score++
	}
	if strings.ContainsFunc(password, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	}) {
		score++
	}

	switch {
	case score <= 2:
		return PasswordWeak
	case score <= 4:
		return PasswordMedium
	default:
		return PasswordStrong
	}
}
