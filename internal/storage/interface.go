package storage

import (
	"context"
	"time"

	"github.com/julianstephens/ropeline/internal/models"
)

// HabitFilter selects which habits ListHabits returns. Active and paused
// habits are always included.
type HabitFilter struct {
	IncludeArchived bool
	IncludeDeleted  bool
}

type HabitStore interface {
	// GetHabit returns errors.ErrHabitNotFound for unknown ids
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	ListHabits(ctx context.Context, userID string, filter HabitFilter) ([]models.Habit, error)
	CreateHabit(ctx context.Context, habit models.Habit) error
	// UpdateHabit writes name, description, category and status. It fails with
	// errors.ErrConflict when habit.Version no longer matches the stored row.
	UpdateHabit(ctx context.Context, habit models.Habit) error
	// SaveHabitProgress writes streak state guarded by expectedVersion.
	SaveHabitProgress(ctx context.Context, id string, expectedVersion int, progress models.HabitProgress) error
}

type CompletionLog interface {
	// AppendCompletion returns errors.ErrDuplicateCompletion when the habit
	// already has a record for the same day.
	AppendCompletion(ctx context.Context, record models.CompletionRecord) error
	ListCompletions(ctx context.Context, habitID string, limit int) ([]models.CompletionRecord, error)
}

type StatsStore interface {
	GetStats(ctx context.Context, userID string) (models.UserStats, error)
	ApplyStatsDelta(ctx context.Context, userID string, delta models.StatsDelta, now time.Time) (models.UserStats, error)
}

type AchievementCatalog interface {
	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	// GetAchievement returns errors.ErrAchievementNotFound for unknown ids
	GetAchievement(ctx context.Context, id string) (models.Achievement, error)
	// ReplaceCatalog upserts every entry and removes entries not present.
	// User progress rows are left untouched.
	ReplaceCatalog(ctx context.Context, catalog []models.Achievement) error
}

type ProgressStore interface {
	GetProgress(ctx context.Context, userID string) ([]models.UserAchievement, error)
	// UpsertProgress never reverts a completed row and keeps the first unlocked_at.
	UpsertProgress(ctx context.Context, progress models.UserAchievement) error
}

type UserStore interface {
	// CreateUser also creates the user's empty stats row. Returns
	// errors.ErrEmailTaken when the email is already registered.
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
}

type SocialStore interface {
	// AddFriendship returns errors.ErrAlreadyFriends if the pair exists
	AddFriendship(ctx context.Context, friendship models.Friendship) error
	ListFriends(ctx context.Context, userID string) ([]models.Friendship, error)
	CreateChallenge(ctx context.Context, challenge models.Challenge) error
	GetChallenge(ctx context.Context, id string) (models.Challenge, error)
	ListChallenges(ctx context.Context) ([]models.Challenge, error)
	// JoinChallenge returns errors.ErrAlreadyJoined if the user already joined
	JoinChallenge(ctx context.Context, participant models.ChallengeParticipant) error
}

// Tx is the full set of stores bound to one transaction
type Tx interface {
	HabitStore
	CompletionLog
	StatsStore
	AchievementCatalog
	ProgressStore
	UserStore
	SocialStore
}

type Transactor interface {
	// InTx runs fn inside a single transaction. The transaction is committed
	// only when fn returns nil; otherwise nothing fn wrote is persisted.
	InTx(ctx context.Context, fn func(Tx) error) error
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	Tx
	Transactor

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
	// SchemaVersion returns the applied and latest known migration versions
	SchemaVersion() (current int, latest int, err error)
	// Migrate applies pending migrations and returns how many ran
	Migrate(logFn func(string)) (int, error)

	// Utils
	GetConfigPath() string
}
