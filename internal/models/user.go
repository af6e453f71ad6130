package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account owning habits and stats
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Timezone     string    `json:"timezone"` // IANA name or "Local"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may use admin operations
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserStats is the per-user rollup maintained by the progress service
type UserStats struct {
	UserID               string    `json:"user_id"`
	TotalPoints          int       `json:"total_points"`
	CurrentStreak        int       `json:"current_streak"`
	LongestStreak        int       `json:"longest_streak"`
	TotalHabitsCompleted int       `json:"total_habits_completed"`
	FriendCount          int       `json:"friend_count"`
	ChallengesJoined     int       `json:"challenges_joined"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// StatsDelta describes an incremental change to UserStats.
// CurrentStreak, when set, replaces the stored value; the rest are added.
type StatsDelta struct {
	PointsDelta      int
	CompletionsDelta int
	FriendsDelta     int
	ChallengesDelta  int
	CurrentStreak    *int
}
