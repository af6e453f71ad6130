package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
)

func (s *Store) GetStats(ctx context.Context, userID string) (models.UserStats, error) {
	var st models.UserStats
	var updatedAt string
	err := s.queryRow(ctx, `
		SELECT user_id, total_points, current_streak, longest_streak, total_habits_completed,
			friend_count, challenges_joined, updated_at
		FROM user_stats WHERE user_id = ?`, userID).
		Scan(&st.UserID, &st.TotalPoints, &st.CurrentStreak, &st.LongestStreak,
			&st.TotalHabitsCompleted, &st.FriendCount, &st.ChallengesJoined, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserStats{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, userID)
	}
	if err != nil {
		return models.UserStats{}, apperrors.Store("get stats", err)
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.UserStats{}, fmt.Errorf("failed to parse updated_at for stats %s: %w", userID, err)
	}
	return st, nil
}

// ApplyStatsDelta adds the counter deltas in one statement so concurrent
// writers never lose an increment. The longest streak only grows.
func (s *Store) ApplyStatsDelta(ctx context.Context, userID string, delta models.StatsDelta, now time.Time) (models.UserStats, error) {
	var streak sql.NullInt64
	if delta.CurrentStreak != nil {
		streak = sql.NullInt64{Int64: int64(*delta.CurrentStreak), Valid: true}
	}

	result, err := s.exec(ctx, `
		UPDATE user_stats SET
			total_points = total_points + ?,
			total_habits_completed = total_habits_completed + ?,
			friend_count = friend_count + ?,
			challenges_joined = challenges_joined + ?,
			current_streak = COALESCE(?, current_streak),
			longest_streak = CASE
				WHEN COALESCE(?, current_streak) > longest_streak THEN COALESCE(?, current_streak)
				ELSE longest_streak
			END,
			updated_at = ?
		WHERE user_id = ?`,
		delta.PointsDelta, delta.CompletionsDelta, delta.FriendsDelta, delta.ChallengesDelta,
		streak, streak, streak, formatTime(now), userID)
	if err != nil {
		return models.UserStats{}, apperrors.Store("apply stats delta", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return models.UserStats{}, apperrors.Store("apply stats delta", err)
	}
	if rows == 0 {
		return models.UserStats{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, userID)
	}
	return s.GetStats(ctx, userID)
}
