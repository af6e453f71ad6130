package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/storage"
)

const habitColumns = `id, user_id, name, description, category, status, current_streak, longest_streak,
	last_completed_at, total_completions, version, created_at, updated_at`

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var category, status, createdAt, updatedAt string
	var lastCompletedAt sql.NullString

	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &category, &status,
		&h.CurrentStreak, &h.LongestStreak, &lastCompletedAt, &h.TotalCompletions,
		&h.Version, &createdAt, &updatedAt)
	if err != nil {
		return models.Habit{}, err
	}
	h.Category = models.HabitCategory(category)
	h.Status = models.HabitStatus(status)

	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at for habit %s: %w", h.ID, err)
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse updated_at for habit %s: %w", h.ID, err)
	}
	if h.LastCompletedAt, err = parseNullTime(lastCompletedAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse last_completed_at for habit %s: %w", h.ID, err)
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	row := s.queryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("%w: %s", apperrors.ErrHabitNotFound, id)
	}
	if err != nil {
		return models.Habit{}, apperrors.Store("get habit", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string, filter storage.HabitFilter) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ?`
	if !filter.IncludeDeleted {
		query += ` AND status <> 'deleted'`
	}
	if !filter.IncludeArchived {
		query += ` AND status <> 'archived'`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Store("list habits", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, apperrors.Store("list habits", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list habits", err)
	}
	return habits, nil
}

func (s *Store) CreateHabit(ctx context.Context, habit models.Habit) error {
	if habit.Version == 0 {
		habit.Version = 1
	}
	_, err := s.exec(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Name, habit.Description, string(habit.Category), string(habit.Status),
		habit.CurrentStreak, habit.LongestStreak, nullTime(habit.LastCompletedAt), habit.TotalCompletions,
		habit.Version, formatTime(habit.CreatedAt), formatTime(habit.UpdatedAt))
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", apperrors.ErrHabitNameTaken, habit.Name)
		}
		return apperrors.Store("create habit", err)
	}
	return nil
}

func (s *Store) UpdateHabit(ctx context.Context, habit models.Habit) error {
	result, err := s.exec(ctx, `
		UPDATE habits
		SET name = ?, description = ?, category = ?, status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		habit.Name, habit.Description, string(habit.Category), string(habit.Status), formatTime(habit.UpdatedAt),
		habit.ID, habit.Version)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", apperrors.ErrHabitNameTaken, habit.Name)
		}
		return apperrors.Store("update habit", err)
	}
	return s.checkVersioned(ctx, result, habit.ID)
}

func (s *Store) SaveHabitProgress(ctx context.Context, id string, expectedVersion int, progress models.HabitProgress) error {
	result, err := s.exec(ctx, `
		UPDATE habits
		SET current_streak = ?, longest_streak = ?, total_completions = ?, last_completed_at = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		progress.CurrentStreak, progress.LongestStreak, progress.TotalCompletions,
		formatTime(progress.LastCompletedAt), formatTime(progress.LastCompletedAt),
		id, expectedVersion)
	if err != nil {
		return apperrors.Store("save habit progress", err)
	}
	return s.checkVersioned(ctx, result, id)
}

// checkVersioned turns a zero-row versioned update into ErrHabitNotFound or ErrConflict
func (s *Store) checkVersioned(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Store("habit rows affected", err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetHabit(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: habit %s", apperrors.ErrConflict, id)
}
