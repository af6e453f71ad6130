package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/ropeline/internal/constants"
	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/utils"
)

const minPasswordLength = 8

// Accounts registers users and signs them in
type Accounts struct {
	store  storage.Transactor
	tokens *Manager
}

func NewAccounts(store storage.Transactor, tokens *Manager) *Accounts {
	return &Accounts{store: store, tokens: tokens}
}

type RegisterInput struct {
	Email       string
	Password    string // optional for CLI-only users
	DisplayName string
	Timezone    string
}

// Register creates a user and its empty stats row. The first account
// registered becomes an admin.
func (a *Accounts) Register(ctx context.Context, in RegisterInput, now time.Time) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, fmt.Errorf("%w: invalid email %q", apperrors.ErrInvalidInput, in.Email)
	}

	timezone := in.Timezone
	if timezone == "" {
		timezone = constants.DefaultTimezone
	}
	if err := utils.ValidateTimezone(timezone); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	var hash string
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return models.User{}, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrInvalidInput, minPasswordLength)
		}
		var err error
		if hash, err = HashPassword(in.Password); err != nil {
			return models.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Timezone:     timezone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := a.store.InTx(ctx, func(tx storage.Tx) error {
		existing, err := tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			user.Role = models.RoleAdmin
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login checks the password and returns a signed access token
func (a *Accounts) Login(ctx context.Context, email, password string) (string, models.User, error) {
	var user models.User
	err := a.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		user, err = tx.GetUserByEmail(ctx, email)
		return err
	})
	if apperrors.Is(err, apperrors.ErrUserNotFound) {
		return "", models.User{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", models.User{}, err
	}
	if user.PasswordHash == "" || ComparePassword(user.PasswordHash, password) != nil {
		return "", models.User{}, apperrors.ErrInvalidCredentials
	}

	token, err := a.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return "", models.User{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

// Promote grants the admin role
func (a *Accounts) Promote(ctx context.Context, userID string, now time.Time) (models.User, error) {
	return a.update(ctx, userID, now, func(u *models.User) error {
		u.Role = models.RoleAdmin
		return nil
	})
}

func (a *Accounts) SetTimezone(ctx context.Context, userID, timezone string, now time.Time) (models.User, error) {
	if err := utils.ValidateTimezone(timezone); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return a.update(ctx, userID, now, func(u *models.User) error {
		u.Timezone = timezone
		return nil
	})
}

func (a *Accounts) SetPassword(ctx context.Context, userID, password string, now time.Time) (models.User, error) {
	if len(password) < minPasswordLength {
		return models.User{}, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrInvalidInput, minPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return a.update(ctx, userID, now, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
}

// RequireAdmin returns ErrUnauthorized unless userID is an admin
func (a *Accounts) RequireAdmin(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := a.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	if !user.IsAdmin() {
		return models.User{}, fmt.Errorf("%w: admin role required", apperrors.ErrUnauthorized)
	}
	return user, nil
}

func (a *Accounts) update(ctx context.Context, userID string, now time.Time, apply func(*models.User) error) (models.User, error) {
	var user models.User
	err := a.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		if user, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if err := apply(&user); err != nil {
			return err
		}
		user.UpdatedAt = now
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}
