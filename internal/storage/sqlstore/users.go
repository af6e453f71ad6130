package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
)

const userColumns = `id, email, display_name, password_hash, role, timezone, created_at, updated_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var role, createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &role, &u.Timezone,
		&createdAt, &updatedAt); err != nil {
		return models.User{}, err
	}
	u.Role = models.Role(role)

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.User{}, fmt.Errorf("failed to parse created_at for user %s: %w", u.ID, err)
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.User{}, fmt.Errorf("failed to parse updated_at for user %s: %w", u.ID, err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, string(user.Role), user.Timezone,
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", apperrors.ErrEmailTaken, user.Email)
		}
		return apperrors.Store("create user", err)
	}

	if _, err := s.exec(ctx, `INSERT INTO user_stats (user_id, updated_at) VALUES (?, ?)`,
		user.ID, formatTime(user.CreatedAt)); err != nil {
		return apperrors.Store("create user stats", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, id)
	}
	if err != nil {
		return models.User{}, apperrors.Store("get user", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, email)
	}
	if err != nil {
		return models.User{}, apperrors.Store("get user by email", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, apperrors.Store("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.Store("list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list users", err)
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) error {
	result, err := s.exec(ctx, `
		UPDATE users SET display_name = ?, password_hash = ?, role = ?, timezone = ?, updated_at = ?
		WHERE id = ?`,
		user.DisplayName, user.PasswordHash, string(user.Role), user.Timezone, formatTime(user.UpdatedAt), user.ID)
	if err != nil {
		return apperrors.Store("update user", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Store("update user", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, user.ID)
	}
	return nil
}
