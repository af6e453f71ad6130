package sqlstore

import (
	"context"
	"fmt"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
)

func (s *Store) AppendCompletion(ctx context.Context, record models.CompletionRecord) error {
	_, err := s.exec(ctx, `
		INSERT INTO completions (id, habit_id, user_id, completed_at, day, streak_at_completion, points_awarded)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.HabitID, record.UserID, formatTime(record.CompletedAt), record.Day,
		record.StreakAtCompletion, record.PointsAwarded)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: habit %s on %s", apperrors.ErrDuplicateCompletion, record.HabitID, record.Day)
		}
		return apperrors.Store("append completion", err)
	}
	return nil
}

// ListCompletions returns the newest records first. A limit <= 0 returns all.
func (s *Store) ListCompletions(ctx context.Context, habitID string, limit int) ([]models.CompletionRecord, error) {
	query := `
		SELECT id, habit_id, user_id, completed_at, day, streak_at_completion, points_awarded
		FROM completions WHERE habit_id = ?
		ORDER BY completed_at DESC, id`
	args := []any{habitID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Store("list completions", err)
	}
	defer rows.Close()

	var records []models.CompletionRecord
	for rows.Next() {
		var r models.CompletionRecord
		var completedAt string
		if err := rows.Scan(&r.ID, &r.HabitID, &r.UserID, &completedAt, &r.Day,
			&r.StreakAtCompletion, &r.PointsAwarded); err != nil {
			return nil, apperrors.Store("list completions", err)
		}
		if r.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, fmt.Errorf("failed to parse completed_at for completion %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list completions", err)
	}
	return records, nil
}
