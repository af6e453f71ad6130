// Package achievement evaluates a user's stats against the achievement catalog.
package achievement

import (
	"fmt"
	"time"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
)

// Result is the outcome of one evaluation pass
type Result struct {
	// Unlocked lists achievements that transitioned to completed in this pass
	Unlocked []models.Achievement
	// Progress holds one row per evaluated achievement, unlocks included
	Progress []models.UserAchievement
	// PointsDelta is the sum of points for Unlocked
	PointsDelta int
}

// Evaluate computes unlocks and progress updates for every catalog entry that
// is not already completed in existing. Special achievements are skipped; use
// Unlock for those. The pass performs no I/O and does not modify its inputs.
func Evaluate(stats models.UserStats, catalog []models.Achievement, existing []models.UserAchievement, now time.Time) Result {
	byID := indexProgress(existing)

	var res Result
	for _, def := range catalog {
		prev, seen := byID[def.ID]
		if seen && prev.Completed {
			continue
		}

		value, ok := CounterValue(stats, def.Counter)
		if !ok || def.Category == models.AchievementSpecial {
			continue
		}

		ua := models.UserAchievement{
			UserID:        stats.UserID,
			AchievementID: def.ID,
			UpdatedAt:     now,
		}
		if value >= def.Requirement {
			ua.Completed = true
			ua.Progress = 100
			unlockedAt := now
			if seen && prev.UnlockedAt != nil {
				unlockedAt = *prev.UnlockedAt
			}
			ua.UnlockedAt = &unlockedAt

			res.Unlocked = append(res.Unlocked, def)
			res.PointsDelta += def.Points
		} else {
			ua.Progress = value
		}
		res.Progress = append(res.Progress, ua)
	}
	return res
}

// Unlock marks a special achievement completed for userID. It returns false
// when the achievement is already completed.
func Unlock(userID string, def models.Achievement, existing []models.UserAchievement, now time.Time) (models.UserAchievement, bool, error) {
	if def.Category != models.AchievementSpecial {
		return models.UserAchievement{}, false, fmt.Errorf("%w: %s", apperrors.ErrNotSpecial, def.ID)
	}
	if prev, ok := indexProgress(existing)[def.ID]; ok && prev.Completed {
		return prev, false, nil
	}

	unlockedAt := now
	return models.UserAchievement{
		UserID:        userID,
		AchievementID: def.ID,
		Progress:      100,
		Completed:     true,
		UnlockedAt:    &unlockedAt,
		UpdatedAt:     now,
	}, true, nil
}

// CounterValue reads the stats value named by c. The second result is false
// for counters that cannot be evaluated automatically.
func CounterValue(stats models.UserStats, c models.Counter) (int, bool) {
	switch c {
	case models.CounterCurrentStreak:
		return stats.CurrentStreak, true
	case models.CounterTotalCompletions:
		return stats.TotalHabitsCompleted, true
	case models.CounterFriends:
		return stats.FriendCount, true
	case models.CounterChallengesJoined:
		return stats.ChallengesJoined, true
	default:
		return 0, false
	}
}

func indexProgress(existing []models.UserAchievement) map[string]models.UserAchievement {
	byID := make(map[string]models.UserAchievement, len(existing))
	for _, ua := range existing {
		byID[ua.AchievementID] = ua
	}
	return byID
}
