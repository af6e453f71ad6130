package models

import "time"

type HabitCategory string

const (
	CategoryHealth       HabitCategory = "health"
	CategoryProductivity HabitCategory = "productivity"
	CategoryLearning     HabitCategory = "learning"
	CategoryMindfulness  HabitCategory = "mindfulness"
	CategorySocial       HabitCategory = "social"
	CategoryFinance      HabitCategory = "finance"
	CategoryCreativity   HabitCategory = "creativity"
	CategoryCustom       HabitCategory = "custom"
)

// HabitCategories lists every category in display order
var HabitCategories = []HabitCategory{
	CategoryHealth,
	CategoryProductivity,
	CategoryLearning,
	CategoryMindfulness,
	CategorySocial,
	CategoryFinance,
	CategoryCreativity,
	CategoryCustom,
}

// Valid reports whether c is a known category
func (c HabitCategory) Valid() bool {
	for _, known := range HabitCategories {
		if c == known {
			return true
		}
	}
	return false
}

type HabitStatus string

const (
	HabitActive   HabitStatus = "active"
	HabitPaused   HabitStatus = "paused"
	HabitArchived HabitStatus = "archived"
	HabitDeleted  HabitStatus = "deleted"
)

// Habit represents a tracked behavior owned by a single user
type Habit struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	Category         HabitCategory `json:"category"`
	Status           HabitStatus   `json:"status"`
	CurrentStreak    int           `json:"current_streak"`
	LongestStreak    int           `json:"longest_streak"`
	LastCompletedAt  *time.Time    `json:"last_completed_at,omitempty"`
	TotalCompletions int           `json:"total_completions"`
	Version          int           `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// HabitProgress is the streak state written back after an accepted completion
type HabitProgress struct {
	CurrentStreak    int
	LongestStreak    int
	TotalCompletions int
	LastCompletedAt  time.Time
}

// CompletionRecord is the immutable fact that a habit was completed at an instant
type CompletionRecord struct {
	ID                 string    `json:"id"`
	HabitID            string    `json:"habit_id"`
	UserID             string    `json:"user_id"`
	CompletedAt        time.Time `json:"completed_at"`
	Day                string    `json:"day"` // YYYY-MM-DD in the user's timezone
	StreakAtCompletion int       `json:"streak_at_completion"`
	PointsAwarded      int       `json:"points_awarded"`
}
