package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/storage/sqlite"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func setupAccounts(t *testing.T) (*Accounts, *sqlite.Store) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewAccounts(store, NewManager("secret", time.Hour)), store
}

func TestRegister(t *testing.T) {
	accounts, store := setupAccounts(t)
	ctx := context.Background()

	first, err := accounts.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "password1", Timezone: "UTC"}, now)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if first.Email != "ada@example.com" || first.DisplayName != "ada" || first.Role != models.RoleAdmin {
		t.Errorf("unexpected first user: %+v", first)
	}

	second, err := accounts.Register(ctx, RegisterInput{Email: "bob@example.com", DisplayName: "Bob"}, now)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if second.Role != models.RoleUser || second.PasswordHash != "" || second.Timezone != "Local" {
		t.Errorf("unexpected second user: %+v", second)
	}

	if _, err := store.GetStats(ctx, second.ID); err != nil {
		t.Errorf("expected stats row: %v", err)
	}

	tests := []struct {
		name string
		in   RegisterInput
		is   error
	}{
		{"duplicate email", RegisterInput{Email: "ADA@example.com"}, apperrors.ErrEmailTaken},
		{"bad email", RegisterInput{Email: "not-an-email"}, nil},
		{"short password", RegisterInput{Email: "c@example.com", Password: "short"}, nil},
		{"bad timezone", RegisterInput{Email: "d@example.com", Timezone: "Mars/Olympus"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accounts.Register(ctx, tt.in, now)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	accounts, _ := setupAccounts(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "password1"}, now)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := accounts.Register(ctx, RegisterInput{Email: "cli@example.com"}, now); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, got, err := accounts.Login(ctx, "ADA@example.com", "password1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected %s, got %s", user.ID, got.ID)
	}
	claims, err := accounts.tokens.ParseToken(token)
	if err != nil || claims.UserID != user.ID {
		t.Errorf("token does not carry user id: %+v %v", claims, err)
	}

	for _, tc := range [][2]string{
		{"ada@example.com", "wrong-password"},
		{"nobody@example.com", "password1"},
		{"cli@example.com", ""},
	} {
		if _, _, err := accounts.Login(ctx, tc[0], tc[1]); !errors.Is(err, apperrors.ErrInvalidCredentials) {
			t.Errorf("Login(%s): expected ErrInvalidCredentials, got %v", tc[0], err)
		}
	}
}

func TestPromoteAndRequireAdmin(t *testing.T) {
	accounts, _ := setupAccounts(t)
	ctx := context.Background()

	if _, err := accounts.Register(ctx, RegisterInput{Email: "admin@example.com"}, now); err != nil {
		t.Fatal(err)
	}
	user, err := accounts.Register(ctx, RegisterInput{Email: "user@example.com"}, now)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := accounts.RequireAdmin(ctx, user.ID); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := accounts.Promote(ctx, user.ID, now); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if _, err := accounts.RequireAdmin(ctx, user.ID); err != nil {
		t.Errorf("expected admin after promote, got %v", err)
	}
	if _, err := accounts.Promote(ctx, "ghost", now); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetTimezoneAndPassword(t *testing.T) {
	accounts, _ := setupAccounts(t)
	ctx := context.Background()
	user, err := accounts.Register(ctx, RegisterInput{Email: "ada@example.com"}, now)
	if err != nil {
		t.Fatal(err)
	}

	got, err := accounts.SetTimezone(ctx, user.ID, "UTC", now)
	if err != nil || got.Timezone != "UTC" {
		t.Errorf("SetTimezone: %+v %v", got, err)
	}
	if _, err := accounts.SetTimezone(ctx, user.ID, "Nowhere/Land", now); err == nil {
		t.Error("expected invalid timezone error")
	}

	if _, err := accounts.SetPassword(ctx, user.ID, "password1", now); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if _, _, err := accounts.Login(ctx, "ada@example.com", "password1"); err != nil {
		t.Errorf("Login after SetPassword failed: %v", err)
	}
}
