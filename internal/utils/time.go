// Package utils holds calendar-day arithmetic shared by streaks, progress and
// the CLI. A "day" is always a YYYY-MM-DD string in some user's location.
package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/ropeline/internal/constants"
)

// LoadLocation resolves an IANA name; "" and "Local" mean the host zone
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == constants.DefaultTimezone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}
	return loc, nil
}

func ValidateTimezone(timezone string) error {
	_, err := LoadLocation(timezone)
	return err
}

func CalendarDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(constants.DateFormat)
}

// ParseDay reads a YYYY-MM-DD day, tolerating surrounding space. The result
// is midnight UTC, the same anchor DaysBetween uses.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(constants.DateFormat, strings.TrimSpace(s))
}

// DaysBetween counts calendar-day boundaries in loc from one instant to
// another. Negative when to is on an earlier day.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	return int(dayAnchor(to, loc).Sub(dayAnchor(from, loc)).Hours() / 24)
}

// dayAnchor maps the local date onto UTC midnight so DST shifts in loc never
// produce 23 or 25 hour days.
func dayAnchor(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
