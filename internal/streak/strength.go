package streak

import (
	"time"

	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/utils"
)

// Strength returns the rope strength of a habit in the range 0..100. The stored
// streak is scaled against a 30 day horizon and every missed day since the last
// completion frays the rope further. The score is cosmetic.
func Strength(habit models.Habit, now time.Time, loc *time.Location) int {
	if habit.LastCompletedAt == nil {
		return 0
	}
	if loc == nil {
		loc = time.Local
	}

	base := min(habit.CurrentStreak, constants.StrengthHorizonDays) * 100 / constants.StrengthHorizonDays
	missed := utils.DaysBetween(*habit.LastCompletedAt, now, loc) - 1
	if missed > 0 {
		base -= missed * constants.StrengthMissedDayCost
	}
	return max(0, min(100, base))
}

// PointsFor returns the points awarded for an accepted completion: a flat base
// plus a bonus for every full week in the new streak, capped.
func PointsFor(out Outcome) int {
	bonus := (out.NewStreak / 7) * constants.WeeklyStreakBonus
	return constants.PointsPerCompletion + min(bonus, constants.MaxStreakBonus)
}
