// Package streak decides the outcome of a single habit completion.
//
// A "day" is a calendar day in the habit owner's timezone. The duplicate check
// and streak continuation both count calendar-day boundaries between the last
// completion and now, so a completion at 23:59 followed by one at 00:01 the next
// local day continues the streak even though fewer than 24 hours elapsed.
package streak

import (
	"fmt"
	"time"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/utils"
)

var (
	// ErrDuplicateCompletion is returned when the habit was already completed on the same day
	ErrDuplicateCompletion = apperrors.ErrDuplicateCompletion
	// ErrInvalidTimestamp is returned for a zero request time or one earlier than the last completion
	ErrInvalidTimestamp = apperrors.New("invalid completion timestamp")
)

type Kind string

const (
	Started   Kind = "started"
	Continued Kind = "continued"
	Reset     Kind = "reset"
)

// Outcome is the decision for an accepted completion
type Outcome struct {
	Kind             Kind
	NewStreak        int
	NewLongestStreak int
	// Day is the calendar day (YYYY-MM-DD) the completion counts for
	Day string
	// DaysSinceLast is the calendar-day distance to the previous completion, 0 if none
	DaysSinceLast int
}

// Evaluate decides whether a completion at now is accepted and what the
// resulting streak is. It does not modify habit.
func Evaluate(habit models.Habit, now time.Time, loc *time.Location) (Outcome, error) {
	if now.IsZero() {
		return Outcome{}, fmt.Errorf("%w: request time is zero", ErrInvalidTimestamp)
	}
	if loc == nil {
		loc = time.Local
	}

	out := Outcome{Day: utils.CalendarDay(now, loc)}

	if habit.LastCompletedAt == nil {
		out.Kind = Started
		out.NewStreak = 1
	} else {
		last := *habit.LastCompletedAt
		if last.IsZero() || now.Before(last) {
			return Outcome{}, fmt.Errorf("%w: %s is before last completion %s",
				ErrInvalidTimestamp, now.Format(time.RFC3339), last.Format(time.RFC3339))
		}

		days := utils.DaysBetween(last, now, loc)
		out.DaysSinceLast = days
		switch {
		case days == 0:
			return Outcome{}, ErrDuplicateCompletion
		case days == 1:
			out.Kind = Continued
			out.NewStreak = habit.CurrentStreak + 1
		default:
			out.Kind = Reset
			out.NewStreak = 1
		}
	}

	out.NewLongestStreak = max(out.NewStreak, habit.LongestStreak)
	return out, nil
}

// Current returns the streak to display at now: the stored streak while the
// last completion was today or yesterday, otherwise 0.
func Current(habit models.Habit, now time.Time, loc *time.Location) int {
	if habit.LastCompletedAt == nil {
		return 0
	}
	if loc == nil {
		loc = time.Local
	}
	if utils.DaysBetween(*habit.LastCompletedAt, now, loc) > 1 {
		return 0
	}
	return habit.CurrentStreak
}

// Best returns the highest Current streak among habits, skipping deleted ones
func Best(habits []models.Habit, now time.Time, loc *time.Location) int {
	best := 0
	for _, h := range habits {
		if h.Status == models.HabitDeleted {
			continue
		}
		best = max(best, Current(h, now, loc))
	}
	return best
}

// CompletedToday reports whether the habit has a completion on now's calendar day.
func CompletedToday(habit models.Habit, now time.Time, loc *time.Location) bool {
	if habit.LastCompletedAt == nil {
		return false
	}
	if loc == nil {
		loc = time.Local
	}
	return utils.DaysBetween(*habit.LastCompletedAt, now, loc) == 0
}
