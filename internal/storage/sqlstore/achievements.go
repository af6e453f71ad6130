package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
)

const achievementColumns = `id, name, description, category, counter, requirement, points, rarity`

func scanAchievement(row scanner) (models.Achievement, error) {
	var a models.Achievement
	var category, counter, rarity string
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &category, &counter,
		&a.Requirement, &a.Points, &rarity); err != nil {
		return models.Achievement{}, err
	}
	a.Category = models.AchievementCategory(category)
	a.Counter = models.Counter(counter)
	a.Rarity = models.Rarity(rarity)
	return a, nil
}

func (s *Store) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	rows, err := s.query(ctx, `SELECT `+achievementColumns+` FROM achievements ORDER BY category, requirement, id`)
	if err != nil {
		return nil, apperrors.Store("list achievements", err)
	}
	defer rows.Close()

	var catalog []models.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, apperrors.Store("list achievements", err)
		}
		catalog = append(catalog, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list achievements", err)
	}
	return catalog, nil
}

func (s *Store) GetAchievement(ctx context.Context, id string) (models.Achievement, error) {
	a, err := scanAchievement(s.queryRow(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Achievement{}, fmt.Errorf("%w: %s", apperrors.ErrAchievementNotFound, id)
	}
	if err != nil {
		return models.Achievement{}, apperrors.Store("get achievement", err)
	}
	return a, nil
}

func (s *Store) ReplaceCatalog(ctx context.Context, catalog []models.Achievement) error {
	ids := make([]any, 0, len(catalog))
	for _, a := range catalog {
		_, err := s.exec(ctx, `
			INSERT INTO achievements (`+achievementColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				category = excluded.category,
				counter = excluded.counter,
				requirement = excluded.requirement,
				points = excluded.points,
				rarity = excluded.rarity`,
			a.ID, a.Name, a.Description, string(a.Category), string(a.Counter), a.Requirement, a.Points, string(a.Rarity))
		if err != nil {
			return apperrors.Store("upsert achievement", err)
		}
		ids = append(ids, a.ID)
	}

	query := `DELETE FROM achievements`
	if len(ids) > 0 {
		query += ` WHERE id NOT IN (` + placeholders(len(ids)) + `)`
	}
	if _, err := s.exec(ctx, query, ids...); err != nil {
		return apperrors.Store("prune achievements", err)
	}
	return nil
}

func (s *Store) GetProgress(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	rows, err := s.query(ctx, `
		SELECT user_id, achievement_id, progress, completed, unlocked_at, updated_at
		FROM user_achievements WHERE user_id = ?
		ORDER BY achievement_id`, userID)
	if err != nil {
		return nil, apperrors.Store("get achievement progress", err)
	}
	defer rows.Close()

	var progress []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		var unlockedAt sql.NullString
		var updatedAt string
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.Progress, &ua.Completed, &unlockedAt, &updatedAt); err != nil {
			return nil, apperrors.Store("get achievement progress", err)
		}
		if ua.UnlockedAt, err = parseNullTime(unlockedAt); err != nil {
			return nil, fmt.Errorf("failed to parse unlocked_at for %s: %w", ua.AchievementID, err)
		}
		if ua.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at for %s: %w", ua.AchievementID, err)
		}
		progress = append(progress, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("get achievement progress", err)
	}
	return progress, nil
}

func (s *Store) UpsertProgress(ctx context.Context, p models.UserAchievement) error {
	_, err := s.exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, progress, completed, unlocked_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, achievement_id) DO UPDATE SET
			progress = excluded.progress,
			completed = excluded.completed,
			unlocked_at = COALESCE(user_achievements.unlocked_at, excluded.unlocked_at),
			updated_at = excluded.updated_at
		WHERE user_achievements.completed = ?`,
		p.UserID, p.AchievementID, p.Progress, p.Completed, nullTime(p.UnlockedAt), formatTime(p.UpdatedAt), false)
	if err != nil {
		return apperrors.Store("upsert achievement progress", err)
	}
	return nil
}
