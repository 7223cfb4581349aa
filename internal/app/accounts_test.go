package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"quizparty-service/internal/app"
	"quizparty-service/internal/domain"
)

func newTestAccounts(env *testEnv) *app.Accounts {
	return app.NewAccounts(env.cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	accounts := newTestAccounts(env)

	user, err := accounts.Register(ctx, "alice", "hunter22", "alice@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Avatar != "A" || user.IsGuest {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := accounts.Register(ctx, "alice", "other123", ""); err != domain.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := accounts.Register(ctx, "bob", "short", ""); !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("expected short-password rejection, got %v", err)
	}

	logged, err := accounts.Login(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("login returned wrong account: %+v", logged)
	}
	if _, err := accounts.Login(ctx, "alice", "wrong"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := accounts.Login(ctx, "nobody", "hunter22"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestGuestIsNeverPersisted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	accounts := newTestAccounts(env)

	guest := accounts.Guest("Zoe")
	if !guest.IsGuest || guest.ID == "" || guest.Avatar != "Z" {
		t.Fatalf("unexpected guest: %+v", guest)
	}

	env.cache.View(ctx, func(snap *domain.Snapshot) {
		if len(snap.Users) != 0 {
			t.Errorf("guest leaked into the snapshot")
		}
	})
	if _, err := accounts.FindUserByID(ctx, guest.ID); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound for a guest, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	accounts := newTestAccounts(env)

	user, err := accounts.Register(ctx, "alice", "hunter22", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := accounts.UpdateProfile(ctx, user.ID, "alicia", "🦊")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "alicia" || updated.Avatar != "🦊" {
		t.Fatalf("profile not updated: %+v", updated)
	}

	if _, err := accounts.UpdateProfile(ctx, user.ID, "x", ""); !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("expected one-letter name rejection, got %v", err)
	}
	if _, err := accounts.UpdateProfile(ctx, "nope", "newname", ""); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// Empty fields leave the stored values alone.
	same, err := accounts.UpdateProfile(ctx, user.ID, "", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if same.Username != "alicia" || same.Avatar != "🦊" {
		t.Fatalf("no-op update clobbered the profile: %+v", same)
	}
}

func TestCheckPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		want     app.PasswordStrength
	}{
		{"abc", app.PasswordWeak},
		{"abcdef", app.PasswordWeak},
		{"abcdef12", app.PasswordMedium},
		{"Abcdef12", app.PasswordMedium},
		{"Abcdef12!", app.PasswordStrong},
	}
	for _, tc := range cases {
		if got := app.CheckPasswordStrength(tc.password); got != tc.want {
			t.Errorf("strength(%q) = %s, want %s", tc.password, got, tc.want)
		}
	}
}
