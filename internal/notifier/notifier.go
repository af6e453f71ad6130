// Package notifier tells the user about completion outcomes and unlocked
// achievements. Delivery is best effort: callers log a failed notification
// and carry on.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/ropeline/internal/models"
)

type Notifier interface {
	CompletionAccepted(ctx context.Context, habit models.Habit, record models.CompletionRecord) error
	CompletionRejected(ctx context.Context, habitID string, reason error) error
	AchievementsUnlocked(ctx context.Context, userID string, unlocked []models.Achievement) error
}

// Multi fans every event out to all notifiers and joins their errors
type Multi []Notifier

func (m Multi) CompletionAccepted(ctx context.Context, habit models.Habit, record models.CompletionRecord) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = append(errs, n.CompletionAccepted(ctx, habit, record))
	}
	return errors.Join(errs...)
}

func (m Multi) CompletionRejected(ctx context.Context, habitID string, reason error) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = append(errs, n.CompletionRejected(ctx, habitID, reason))
	}
	return errors.Join(errs...)
}

func (m Multi) AchievementsUnlocked(ctx context.Context, userID string, unlocked []models.Achievement) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = append(errs, n.AchievementsUnlocked(ctx, userID, unlocked))
	}
	return errors.Join(errs...)
}

// Nop discards every event
type Nop struct{}

func (Nop) CompletionAccepted(context.Context, models.Habit, models.CompletionRecord) error {
	return nil
}

func (Nop) CompletionRejected(context.Context, string, error) error {
	return nil
}

func (Nop) AchievementsUnlocked(context.Context, string, []models.Achievement) error {
	return nil
}

func acceptedText(habit models.Habit, record models.CompletionRecord) string {
	days := "days"
	if record.StreakAtCompletion == 1 {
		days = "day"
	}
	return fmt.Sprintf("%s done: %d %s in a row, +%d points", habit.Name, record.StreakAtCompletion, days, record.PointsAwarded)
}

func unlockedText(unlocked []models.Achievement) string {
	names := make([]string, 0, len(unlocked))
	points := 0
	for _, a := range unlocked {
		names = append(names, a.Name)
		points += a.Points
	}
	return fmt.Sprintf("Achievement unlocked: %s (+%d points)", strings.Join(names, ", "), points)
}
