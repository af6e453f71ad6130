package models

import "time"

type AchievementCategory string

const (
	AchievementStreak     AchievementCategory = "streak"
	AchievementCompletion AchievementCategory = "completion"
	AchievementSocial     AchievementCategory = "social"
	AchievementSpecial    AchievementCategory = "special"
)

// Counter names the UserStats value an achievement is measured against
type Counter string

const (
	CounterNone             Counter = "none"
	CounterCurrentStreak    Counter = "current_streak"
	CounterTotalCompletions Counter = "total_completions"
	CounterFriends          Counter = "friends"
	CounterChallengesJoined Counter = "challenges_joined"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Achievement is an immutable catalog entry
type Achievement struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description" yaml:"description"`
	Category    AchievementCategory `json:"category" yaml:"category"`
	Counter     Counter             `json:"counter" yaml:"counter"`
	Requirement int                 `json:"requirement" yaml:"requirement"`
	Points      int                 `json:"points" yaml:"points"`
	Rarity      Rarity              `json:"rarity" yaml:"rarity"`
}

// UserAchievement records one user's progress toward one achievement
type UserAchievement struct {
	UserID        string     `json:"user_id"`
	AchievementID string     `json:"achievement_id"`
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
