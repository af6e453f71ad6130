// Package progress orchestrates habit completions and the social actions
// that feed achievements. Every operation runs in one storage transaction,
// and notifications go out only after it commits.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/ropeline/internal/achievement"
	"github.com/julianstephens/ropeline/internal/constants"
	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/logger"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/notifier"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/streak"
	"github.com/julianstephens/ropeline/internal/utils"
)

type Service struct {
	store       storage.Transactor
	notifier    notifier.Notifier
	maxAttempts int
	retryDelay  time.Duration
	newID       func() string
}

type Option func(*Service)

// WithRetry sets how many times CompleteHabit is attempted on a version
// conflict and the base delay between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		s.maxAttempts = max(attempts, 1)
		s.retryDelay = delay
	}
}

// WithIDGenerator replaces uuid generation for completion records and challenges
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(store storage.Transactor, n notifier.Notifier, opts ...Option) *Service {
	if n == nil {
		n = notifier.Nop{}
	}
	s := &Service{
		store:       store,
		notifier:    n,
		maxAttempts: constants.CompletionMaxAttempts,
		retryDelay:  constants.CompletionRetryDelay,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompletionResult describes an accepted completion
type CompletionResult struct {
	Habit    models.Habit
	Record   models.CompletionRecord
	Outcome  streak.Outcome
	Stats    models.UserStats
	Unlocked []models.Achievement
}

// Result describes the stats and unlocks after a non-completion update
type Result struct {
	Stats    models.UserStats
	Unlocked []models.Achievement
}

// CompleteHabit records a completion of habitID by userID at now. Version
// conflicts from concurrent completions are retried with fresh reads.
func (s *Service) CompleteHabit(ctx context.Context, userID, habitID string, now time.Time) (CompletionResult, error) {
	var (
		res CompletionResult
		err error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		res, err = s.completeOnce(ctx, userID, habitID, now)
		if !errors.Is(err, apperrors.ErrConflict) || attempt == s.maxAttempts {
			break
		}
		logger.Debug("Completion conflict, retrying", "habit", habitID, "attempt", attempt)
		select {
		case <-ctx.Done():
			return CompletionResult{}, ctx.Err()
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}

	if err != nil {
		s.notify("completion rejected", s.notifier.CompletionRejected(ctx, habitID, err))
		return CompletionResult{}, err
	}

	s.notify("completion accepted", s.notifier.CompletionAccepted(ctx, res.Habit, res.Record))
	if len(res.Unlocked) > 0 {
		s.notify("achievements unlocked", s.notifier.AchievementsUnlocked(ctx, userID, res.Unlocked))
	}
	return res, nil
}

func (s *Service) completeOnce(ctx context.Context, userID, habitID string, now time.Time) (CompletionResult, error) {
	var res CompletionResult
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		loc, err := utils.LoadLocation(user.Timezone)
		if err != nil {
			return err
		}

		habit, err := tx.GetHabit(ctx, habitID)
		if err != nil {
			return err
		}
		if habit.UserID != userID {
			return fmt.Errorf("%w: habit %s", apperrors.ErrUnauthorized, habitID)
		}
		if habit.Status != models.HabitActive {
			return fmt.Errorf("%w: %s is %s", apperrors.ErrHabitInactive, habit.Name, habit.Status)
		}

		out, err := streak.Evaluate(habit, now, loc)
		if err != nil {
			return err
		}
		points := streak.PointsFor(out)

		progress := models.HabitProgress{
			CurrentStreak:    out.NewStreak,
			LongestStreak:    out.NewLongestStreak,
			TotalCompletions: habit.TotalCompletions + 1,
			LastCompletedAt:  now,
		}
		if err := tx.SaveHabitProgress(ctx, habit.ID, habit.Version, progress); err != nil {
			return err
		}

		record := models.CompletionRecord{
			ID:                 s.newID(),
			HabitID:            habit.ID,
			UserID:             userID,
			CompletedAt:        now,
			Day:                out.Day,
			StreakAtCompletion: out.NewStreak,
			PointsAwarded:      points,
		}
		if err := tx.AppendCompletion(ctx, record); err != nil {
			return err
		}

		stats, err := applyDelta(ctx, tx, user, models.StatsDelta{
			PointsDelta:      points,
			CompletionsDelta: 1,
		}, now)
		if err != nil {
			return err
		}

		unlocked, stats, err := evaluate(ctx, tx, stats, now)
		if err != nil {
			return err
		}

		updated, err := tx.GetHabit(ctx, habit.ID)
		if err != nil {
			return err
		}

		res = CompletionResult{
			Habit:    updated,
			Record:   record,
			Outcome:  out,
			Stats:    stats,
			Unlocked: unlocked,
		}
		return nil
	})
	return res, err
}

// AddFriend links userID and friendID in both directions and re-evaluates
// achievements for both. The result is for userID.
func (s *Service) AddFriend(ctx context.Context, userID, friendID string, now time.Time) (Result, error) {
	if userID == friendID {
		return Result{}, fmt.Errorf("%w: cannot add yourself as a friend", apperrors.ErrInvalidInput)
	}

	var res, friendRes Result
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		for _, id := range []string{userID, friendID} {
			if _, err := tx.GetUser(ctx, id); err != nil {
				return err
			}
		}
		for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
			if err := tx.AddFriendship(ctx, models.Friendship{UserID: pair[0], FriendID: pair[1], CreatedAt: now}); err != nil {
				return err
			}
		}

		var err error
		if res, err = applyAndEvaluate(ctx, tx, userID, models.StatsDelta{FriendsDelta: 1}, now); err != nil {
			return err
		}
		friendRes, err = applyAndEvaluate(ctx, tx, friendID, models.StatsDelta{FriendsDelta: 1}, now)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	s.notifyUnlocked(ctx, userID, res.Unlocked)
	s.notifyUnlocked(ctx, friendID, friendRes.Unlocked)
	return res, nil
}

// JoinChallenge records userID as a participant of challengeID
func (s *Service) JoinChallenge(ctx context.Context, userID, challengeID string, now time.Time) (Result, error) {
	var res Result
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if _, err := tx.GetChallenge(ctx, challengeID); err != nil {
			return err
		}
		participant := models.ChallengeParticipant{ChallengeID: challengeID, UserID: userID, JoinedAt: now}
		if err := tx.JoinChallenge(ctx, participant); err != nil {
			return err
		}

		var err error
		res, err = applyAndEvaluate(ctx, tx, userID, models.StatsDelta{ChallengesDelta: 1}, now)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	s.notifyUnlocked(ctx, userID, res.Unlocked)
	return res, nil
}

// UnlockSpecial explicitly grants a special achievement. Granting one the
// user already holds is a no-op with an empty Unlocked list.
func (s *Service) UnlockSpecial(ctx context.Context, userID, achievementID string, now time.Time) (Result, error) {
	var res Result
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		def, err := tx.GetAchievement(ctx, achievementID)
		if err != nil {
			return err
		}
		existing, err := tx.GetProgress(ctx, userID)
		if err != nil {
			return err
		}

		ua, unlocked, err := achievement.Unlock(userID, def, existing, now)
		if err != nil {
			return err
		}

		delta := models.StatsDelta{}
		if unlocked {
			if err := tx.UpsertProgress(ctx, ua); err != nil {
				return err
			}
			delta.PointsDelta = def.Points
			res.Unlocked = []models.Achievement{def}
		}
		res.Stats, err = RefreshStats(ctx, tx, userID, delta, now)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	s.notifyUnlocked(ctx, userID, res.Unlocked)
	return res, nil
}

// Reevaluate runs the achievement evaluator against the user's current stats,
// for example after the catalog was replaced.
func (s *Service) Reevaluate(ctx context.Context, userID string, now time.Time) (Result, error) {
	var res Result
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		res, err = applyAndEvaluate(ctx, tx, userID, models.StatsDelta{}, now)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	s.notifyUnlocked(ctx, userID, res.Unlocked)
	return res, nil
}

// Stats returns the user's stats with the current streak recomputed at now
func (s *Service) Stats(ctx context.Context, userID string, now time.Time) (models.UserStats, error) {
	var stats models.UserStats
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		stats, err = RefreshStats(ctx, tx, userID, models.StatsDelta{}, now)
		return err
	})
	return stats, err
}

// RefreshStats applies delta and replaces CurrentStreak with the best live
// streak across the user's non-deleted habits at now. Stored habit streaks go
// stale after a missed day, so every stats write goes through here.
func RefreshStats(ctx context.Context, tx storage.Tx, userID string, delta models.StatsDelta, now time.Time) (models.UserStats, error) {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	return applyDelta(ctx, tx, user, delta, now)
}

func applyDelta(ctx context.Context, tx storage.Tx, user models.User, delta models.StatsDelta, now time.Time) (models.UserStats, error) {
	loc, err := utils.LoadLocation(user.Timezone)
	if err != nil {
		return models.UserStats{}, err
	}
	habits, err := tx.ListHabits(ctx, user.ID, storage.HabitFilter{IncludeArchived: true})
	if err != nil {
		return models.UserStats{}, err
	}
	current := streak.Best(habits, now, loc)
	delta.CurrentStreak = &current
	return tx.ApplyStatsDelta(ctx, user.ID, delta, now)
}

func applyAndEvaluate(ctx context.Context, tx storage.Tx, userID string, delta models.StatsDelta, now time.Time) (Result, error) {
	stats, err := RefreshStats(ctx, tx, userID, delta, now)
	if err != nil {
		return Result{}, err
	}
	unlocked, stats, err := evaluate(ctx, tx, stats, now)
	if err != nil {
		return Result{}, err
	}
	return Result{Stats: stats, Unlocked: unlocked}, nil
}

// evaluate runs the achievement evaluator, persists progress and credits
// unlock points. It returns the refreshed stats.
func evaluate(ctx context.Context, tx storage.Tx, stats models.UserStats, now time.Time) ([]models.Achievement, models.UserStats, error) {
	catalog, err := tx.ListAchievements(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %w", apperrors.ErrCatalogUnavailable, err)
	}
	existing, err := tx.GetProgress(ctx, stats.UserID)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %w", apperrors.ErrCatalogUnavailable, err)
	}

	res := achievement.Evaluate(stats, catalog, existing, now)
	for _, ua := range res.Progress {
		if err := tx.UpsertProgress(ctx, ua); err != nil {
			return nil, stats, err
		}
	}

	if res.PointsDelta > 0 {
		stats, err = tx.ApplyStatsDelta(ctx, stats.UserID, models.StatsDelta{PointsDelta: res.PointsDelta}, now)
		if err != nil {
			return nil, stats, err
		}
	}
	return res.Unlocked, stats, nil
}

func (s *Service) notifyUnlocked(ctx context.Context, userID string, unlocked []models.Achievement) {
	if len(unlocked) == 0 {
		return
	}
	s.notify("achievements unlocked", s.notifier.AchievementsUnlocked(ctx, userID, unlocked))
}

func (s *Service) notify(event string, err error) {
	if err != nil {
		logger.Warn("Notification failed", "event", event, "error", err)
	}
}
