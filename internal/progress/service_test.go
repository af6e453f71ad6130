package progress

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/ropeline/internal/achievement"
	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/storage/sqlite"
	"github.com/julianstephens/ropeline/internal/streak"
)

var day1 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu       sync.Mutex
	accepted int
	rejected []error
	unlocked map[string][]string
	err      error
}

func (r *recorder) CompletionAccepted(context.Context, models.Habit, models.CompletionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted++
	return r.err
}

func (r *recorder) CompletionRejected(_ context.Context, _ string, reason error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, reason)
	return r.err
}

func (r *recorder) AchievementsUnlocked(_ context.Context, userID string, unlocked []models.Achievement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unlocked == nil {
		r.unlocked = map[string][]string{}
	}
	for _, a := range unlocked {
		r.unlocked[userID] = append(r.unlocked[userID], a.ID)
	}
	return r.err
}

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	catalog, err := achievement.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	if err := store.ReplaceCatalog(context.Background(), catalog); err != nil {
		t.Fatalf("ReplaceCatalog failed: %v", err)
	}
	return store
}

func addUser(t *testing.T, store *sqlite.Store, id, timezone string) {
	t.Helper()
	u := models.User{ID: id, Email: id + "@example.com", Role: models.RoleUser, Timezone: timezone,
		CreatedAt: day1, UpdatedAt: day1}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func addHabit(t *testing.T, store *sqlite.Store, id, userID string, status models.HabitStatus) {
	t.Helper()
	h := models.Habit{ID: id, UserID: userID, Name: id, Category: models.CategoryHealth, Status: status,
		CreatedAt: day1, UpdatedAt: day1}
	if err := store.CreateHabit(context.Background(), h); err != nil {
		t.Fatalf("CreateHabit failed: %v", err)
	}
}

func newService(store storage.Transactor, n *recorder) *Service {
	return New(store, n, WithRetry(3, 0))
}

func TestCompleteHabitFirstCompletion(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	rec := &recorder{}
	svc := newService(store, rec)

	res, err := svc.CompleteHabit(context.Background(), "u1", "h1", day1)
	if err != nil {
		t.Fatalf("CompleteHabit failed: %v", err)
	}

	if res.Habit.CurrentStreak != 1 || res.Habit.LongestStreak != 1 || res.Habit.TotalCompletions != 1 {
		t.Errorf("unexpected habit: %+v", res.Habit)
	}
	if res.Record.Day != "2026-03-10" || res.Record.PointsAwarded != 10 {
		t.Errorf("unexpected record: %+v", res.Record)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].ID != "first-step" {
		t.Errorf("expected first-step unlock, got %+v", res.Unlocked)
	}
	// 10 for the completion and 10 for first-step
	if res.Stats.TotalPoints != 20 || res.Stats.TotalHabitsCompleted != 1 || res.Stats.CurrentStreak != 1 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	if rec.accepted != 1 || len(rec.unlocked["u1"]) != 1 {
		t.Errorf("unexpected notifications: %+v", rec)
	}
}

func TestCompleteHabitDuplicateSameDay(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	rec := &recorder{}
	svc := newService(store, rec)
	ctx := context.Background()

	if _, err := svc.CompleteHabit(ctx, "u1", "h1", day1); err != nil {
		t.Fatalf("CompleteHabit failed: %v", err)
	}
	_, err := svc.CompleteHabit(ctx, "u1", "h1", day1.Add(5*time.Hour))
	if !errors.Is(err, apperrors.ErrDuplicateCompletion) {
		t.Fatalf("expected ErrDuplicateCompletion, got %v", err)
	}

	h, _ := store.GetHabit(ctx, "h1")
	if h.TotalCompletions != 1 {
		t.Errorf("expected 1 completion, got %d", h.TotalCompletions)
	}
	stats, _ := store.GetStats(ctx, "u1")
	if stats.TotalPoints != 20 {
		t.Errorf("expected points unchanged at 20, got %d", stats.TotalPoints)
	}
	if len(rec.rejected) != 1 {
		t.Errorf("expected one rejection notification, got %d", len(rec.rejected))
	}
}

func TestCompleteHabitStreakAcrossDays(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	svc := newService(store, &recorder{})
	ctx := context.Background()

	var res CompletionResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = svc.CompleteHabit(ctx, "u1", "h1", day1.AddDate(0, 0, i))
		if err != nil {
			t.Fatalf("day %d: CompleteHabit failed: %v", i+1, err)
		}
	}
	if res.Habit.CurrentStreak != 3 || res.Stats.CurrentStreak != 3 {
		t.Errorf("expected streak 3, got habit=%d stats=%d", res.Habit.CurrentStreak, res.Stats.CurrentStreak)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].ID != "three-in-a-row" {
		t.Errorf("expected three-in-a-row unlock, got %+v", res.Unlocked)
	}
	// 3 completions at 10, first-step 10, three-in-a-row 15
	if res.Stats.TotalPoints != 55 {
		t.Errorf("expected 55 points, got %d", res.Stats.TotalPoints)
	}

	// Skipping a day resets the streak but keeps the longest
	res, err = svc.CompleteHabit(ctx, "u1", "h1", day1.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("CompleteHabit failed: %v", err)
	}
	if res.Habit.CurrentStreak != 1 || res.Habit.LongestStreak != 3 {
		t.Errorf("expected reset to 1 with longest 3, got %+v", res.Habit)
	}
	if res.Stats.LongestStreak != 3 || res.Stats.CurrentStreak != 1 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}

	history, err := store.ListCompletions(ctx, "h1", 0)
	if err != nil {
		t.Fatalf("ListCompletions failed: %v", err)
	}
	if len(history) != 4 {
		t.Errorf("expected 4 completion records, got %d", len(history))
	}
}

func TestCompleteHabitLocalMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	store := setupStore(t)
	addUser(t, store, "u1", "Asia/Tokyo")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	svc := newService(store, &recorder{})
	ctx := context.Background()

	late := time.Date(2026, 3, 10, 23, 59, 0, 0, loc)
	early := time.Date(2026, 3, 11, 0, 1, 0, 0, loc)

	if _, err := svc.CompleteHabit(ctx, "u1", "h1", late); err != nil {
		t.Fatalf("CompleteHabit failed: %v", err)
	}
	res, err := svc.CompleteHabit(ctx, "u1", "h1", early)
	if err != nil {
		t.Fatalf("CompleteHabit failed: %v", err)
	}
	if res.Habit.CurrentStreak != 2 || res.Record.Day != "2026-03-11" {
		t.Errorf("expected continued streak on 2026-03-11, got streak=%d day=%s", res.Habit.CurrentStreak, res.Record.Day)
	}
}

func TestCompleteHabitRejections(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addUser(t, store, "u2", "UTC")
	addHabit(t, store, "active", "u1", models.HabitActive)
	addHabit(t, store, "paused", "u1", models.HabitPaused)
	addHabit(t, store, "archived", "u1", models.HabitArchived)
	svc := newService(store, &recorder{})

	tests := []struct {
		name    string
		userID  string
		habitID string
		now     time.Time
		wantErr error
	}{
		{"paused", "u1", "paused", day1, apperrors.ErrHabitInactive},
		{"archived", "u1", "archived", day1, apperrors.ErrHabitInactive},
		{"other user", "u2", "active", day1, apperrors.ErrUnauthorized},
		{"unknown habit", "u1", "missing", day1, apperrors.ErrHabitNotFound},
		{"unknown user", "ghost", "active", day1, apperrors.ErrUserNotFound},
		{"zero time", "u1", "active", time.Time{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CompleteHabit(context.Background(), tt.userID, tt.habitID, tt.now)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	stats, _ := store.GetStats(context.Background(), "u1")
	if stats.TotalHabitsCompleted != 0 || stats.TotalPoints != 0 {
		t.Errorf("rejected completions changed stats: %+v", stats)
	}
}

// conflictStore injects version conflicts into the first n transactions
type conflictStore struct {
	storage.Transactor
	mu        sync.Mutex
	conflicts int
}

type conflictTx struct {
	storage.Tx
	fail bool
}

func (c conflictTx) SaveHabitProgress(ctx context.Context, id string, version int, p models.HabitProgress) error {
	if c.fail {
		return fmt.Errorf("%w: habit %s", apperrors.ErrConflict, id)
	}
	return c.Tx.SaveHabitProgress(ctx, id, version, p)
}

func (c *conflictStore) InTx(ctx context.Context, fn func(storage.Tx) error) error {
	c.mu.Lock()
	fail := c.conflicts > 0
	c.conflicts--
	c.mu.Unlock()
	return c.Transactor.InTx(ctx, func(tx storage.Tx) error {
		return fn(conflictTx{Tx: tx, fail: fail})
	})
}

func TestCompleteHabitRetriesConflicts(t *testing.T) {
	tests := []struct {
		name      string
		conflicts int
		wantErr   error
		wantTotal int
	}{
		{"succeeds after retries", 2, nil, 1},
		{"gives up", 3, apperrors.ErrConflict, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupStore(t)
			addUser(t, store, "u1", "UTC")
			addHabit(t, store, "h1", "u1", models.HabitActive)
			svc := newService(&conflictStore{Transactor: store, conflicts: tt.conflicts}, &recorder{})

			_, err := svc.CompleteHabit(context.Background(), "u1", "h1", day1)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			h, _ := store.GetHabit(context.Background(), "h1")
			if h.TotalCompletions != tt.wantTotal {
				t.Errorf("expected %d completions, got %d", tt.wantTotal, h.TotalCompletions)
			}
			records, _ := store.ListCompletions(context.Background(), "h1", 0)
			if len(records) != tt.wantTotal {
				t.Errorf("expected %d records, got %d", tt.wantTotal, len(records))
			}
		})
	}
}

func TestCompleteHabitConcurrentSameDay(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	svc := newService(store, &recorder{})

	const workers = 5
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CompleteHabit(context.Background(), "u1", "h1", day1.Add(time.Duration(i)*time.Minute))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, apperrors.ErrDuplicateCompletion), errors.Is(err, streak.ErrInvalidTimestamp):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Errorf("expected exactly one accepted completion, got %d", accepted)
	}

	h, _ := store.GetHabit(context.Background(), "h1")
	if h.TotalCompletions != 1 || h.CurrentStreak != 1 {
		t.Errorf("unexpected habit after concurrent completions: %+v", h)
	}
}

func TestCompleteHabitCanceledContext(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	svc := newService(store, &recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.CompleteHabit(ctx, "u1", "h1", day1); err == nil {
		t.Fatal("expected error for canceled context")
	}

	h, _ := store.GetHabit(context.Background(), "h1")
	if h.TotalCompletions != 0 {
		t.Errorf("canceled completion persisted: %+v", h)
	}
}

func TestNotifierFailureIsNotReturned(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	svc := newService(store, &recorder{err: errors.New("tray offline")})

	if _, err := svc.CompleteHabit(context.Background(), "u1", "h1", day1); err != nil {
		t.Fatalf("notifier failure leaked: %v", err)
	}
}

func TestAddFriend(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addUser(t, store, "u2", "UTC")
	rec := &recorder{}
	svc := newService(store, rec)
	ctx := context.Background()

	res, err := svc.AddFriend(ctx, "u1", "u2", day1)
	if err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	if res.Stats.FriendCount != 1 || res.Stats.TotalPoints != 20 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	other, _ := store.GetStats(ctx, "u2")
	if other.FriendCount != 1 || other.TotalPoints != 20 {
		t.Errorf("unexpected friend stats: %+v", other)
	}
	if len(rec.unlocked["u1"]) != 1 || len(rec.unlocked["u2"]) != 1 {
		t.Errorf("expected first-friend for both users, got %+v", rec.unlocked)
	}

	if _, err := svc.AddFriend(ctx, "u2", "u1", day1); !errors.Is(err, apperrors.ErrAlreadyFriends) {
		t.Errorf("expected ErrAlreadyFriends, got %v", err)
	}
	if _, err := svc.AddFriend(ctx, "u1", "u1", day1); err == nil {
		t.Error("expected error adding self")
	}
	if _, err := svc.AddFriend(ctx, "u1", "ghost", day1); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	stats, _ := store.GetStats(ctx, "u1")
	if stats.FriendCount != 1 {
		t.Errorf("failed adds changed friend count: %d", stats.FriendCount)
	}
}

func TestJoinChallenge(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	svc := newService(store, &recorder{})
	ctx := context.Background()

	c := models.Challenge{ID: "c1", Name: "March", StartsOn: "2026-03-01", EndsOn: "2026-03-31", CreatedAt: day1}
	if err := store.CreateChallenge(ctx, c); err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}

	res, err := svc.JoinChallenge(ctx, "u1", "c1", day1)
	if err != nil {
		t.Fatalf("JoinChallenge failed: %v", err)
	}
	if res.Stats.ChallengesJoined != 1 || len(res.Unlocked) != 1 || res.Unlocked[0].ID != "challenger" {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := svc.JoinChallenge(ctx, "u1", "c1", day1); !errors.Is(err, apperrors.ErrAlreadyJoined) {
		t.Errorf("expected ErrAlreadyJoined, got %v", err)
	}
	if _, err := svc.JoinChallenge(ctx, "u1", "missing", day1); !errors.Is(err, apperrors.ErrChallengeNotFound) {
		t.Errorf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestUnlockSpecial(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	svc := newService(store, &recorder{})
	ctx := context.Background()

	res, err := svc.UnlockSpecial(ctx, "u1", "early-adopter", day1)
	if err != nil {
		t.Fatalf("UnlockSpecial failed: %v", err)
	}
	if len(res.Unlocked) != 1 || res.Stats.TotalPoints != 100 {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = svc.UnlockSpecial(ctx, "u1", "early-adopter", day1.Add(time.Hour))
	if err != nil {
		t.Fatalf("second UnlockSpecial failed: %v", err)
	}
	if len(res.Unlocked) != 0 || res.Stats.TotalPoints != 100 {
		t.Errorf("points credited twice: %+v", res)
	}

	if _, err := svc.UnlockSpecial(ctx, "u1", "first-step", day1); !errors.Is(err, apperrors.ErrNotSpecial) {
		t.Errorf("expected ErrNotSpecial, got %v", err)
	}
	if _, err := svc.UnlockSpecial(ctx, "u1", "nope", day1); !errors.Is(err, apperrors.ErrAchievementNotFound) {
		t.Errorf("expected ErrAchievementNotFound, got %v", err)
	}
}

func TestReevaluateAfterCatalogChange(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	svc := newService(store, &recorder{})
	ctx := context.Background()

	if _, err := svc.CompleteHabit(ctx, "u1", "h1", day1); err != nil {
		t.Fatalf("CompleteHabit failed: %v", err)
	}

	catalog, _ := store.ListAchievements(ctx)
	catalog = append(catalog, models.Achievement{ID: "warm-up", Name: "Warm Up", Category: models.AchievementCompletion,
		Counter: models.CounterTotalCompletions, Requirement: 1, Points: 5, Rarity: models.RarityCommon})
	if err := store.ReplaceCatalog(ctx, catalog); err != nil {
		t.Fatalf("ReplaceCatalog failed: %v", err)
	}

	res, err := svc.Reevaluate(ctx, "u1", day1.Add(time.Hour))
	if err != nil {
		t.Fatalf("Reevaluate failed: %v", err)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].ID != "warm-up" {
		t.Errorf("expected warm-up unlock, got %+v", res.Unlocked)
	}
	if res.Stats.TotalPoints != 25 {
		t.Errorf("expected 25 points, got %d", res.Stats.TotalPoints)
	}

	res, err = svc.Reevaluate(ctx, "u1", day1.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Reevaluate failed: %v", err)
	}
	if len(res.Unlocked) != 0 || res.Stats.TotalPoints != 25 {
		t.Errorf("second pass should be idempotent: %+v", res)
	}
}

func TestReevaluateIgnoresBrokenStreak(t *testing.T) {
	store := setupStore(t)
	addUser(t, store, "u1", "UTC")
	addHabit(t, store, "h1", "u1", models.HabitActive)
	svc := newService(store, &recorder{})
	ctx := context.Background()

	for d := range 3 {
		if _, err := svc.CompleteHabit(ctx, "u1", "h1", day1.AddDate(0, 0, d)); err != nil {
			t.Fatalf("day %d: %v", d+1, err)
		}
	}

	catalog, _ := store.ListAchievements(ctx)
	catalog = append(catalog, models.Achievement{ID: "late-streak", Name: "Late Streak", Category: models.AchievementStreak,
		Counter: models.CounterCurrentStreak, Requirement: 3, Points: 30, Rarity: models.RarityCommon})
	if err := store.ReplaceCatalog(ctx, catalog); err != nil {
		t.Fatalf("ReplaceCatalog failed: %v", err)
	}

	later := day1.AddDate(0, 0, 30)
	res, err := svc.Reevaluate(ctx, "u1", later)
	if err != nil {
		t.Fatalf("Reevaluate failed: %v", err)
	}
	if len(res.Unlocked) != 0 {
		t.Errorf("broken streak unlocked %+v", res.Unlocked)
	}
	if res.Stats.CurrentStreak != 0 || res.Stats.LongestStreak != 3 {
		t.Errorf("CurrentStreak = %d, LongestStreak = %d, want 0 and 3", res.Stats.CurrentStreak, res.Stats.LongestStreak)
	}

	stats, err := svc.Stats(ctx, "u1", later)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.CurrentStreak != 0 {
		t.Errorf("Stats().CurrentStreak = %d, want 0", stats.CurrentStreak)
	}

	// friends and challenges re-run the evaluator too
	addUser(t, store, "u2", "UTC")
	res, err = svc.AddFriend(ctx, "u1", "u2", later)
	if err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	for _, a := range res.Unlocked {
		if a.ID == "late-streak" {
			t.Error("AddFriend unlocked late-streak from a broken streak")
		}
	}
}

// catalogFailStore makes achievement reads fail inside every transaction
type catalogFailStore struct {
	storage.Transactor
	failProgress bool
}

type catalogFailTx struct {
	storage.Tx
	failProgress bool
}

var errCatalogDown = errors.New("catalog table unreadable")

func (c catalogFailTx) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	if c.failProgress {
		return c.Tx.ListAchievements(ctx)
	}
	return nil, errCatalogDown
}

func (c catalogFailTx) GetProgress(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	if c.failProgress {
		return nil, errCatalogDown
	}
	return c.Tx.GetProgress(ctx, userID)
}

func (c *catalogFailStore) InTx(ctx context.Context, fn func(storage.Tx) error) error {
	return c.Transactor.InTx(ctx, func(tx storage.Tx) error {
		return fn(catalogFailTx{Tx: tx, failProgress: c.failProgress})
	})
}

func TestCompleteHabitCatalogFailureRollsBack(t *testing.T) {
	for _, tt := range []struct {
		name         string
		failProgress bool
	}{
		{"catalog", false},
		{"existing progress", true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			store := setupStore(t)
			addUser(t, store, "u1", "UTC")
			addHabit(t, store, "h1", "u1", models.HabitActive)
			ctx := context.Background()

			// one good day so there is state to preserve
			if _, err := newService(store, &recorder{}).CompleteHabit(ctx, "u1", "h1", day1); err != nil {
				t.Fatal(err)
			}
			habitBefore, _ := store.GetHabit(ctx, "h1")
			statsBefore, _ := store.GetStats(ctx, "u1")
			progressBefore, _ := store.GetProgress(ctx, "u1")

			rec := &recorder{}
			svc := newService(&catalogFailStore{Transactor: store, failProgress: tt.failProgress}, rec)
			_, err := svc.CompleteHabit(ctx, "u1", "h1", day1.AddDate(0, 0, 1))
			if !errors.Is(err, apperrors.ErrCatalogUnavailable) || !errors.Is(err, errCatalogDown) {
				t.Fatalf("expected ErrCatalogUnavailable wrapping the read error, got %v", err)
			}

			habitAfter, _ := store.GetHabit(ctx, "h1")
			if habitAfter.TotalCompletions != habitBefore.TotalCompletions ||
				habitAfter.CurrentStreak != habitBefore.CurrentStreak ||
				habitAfter.Version != habitBefore.Version {
				t.Errorf("habit changed: before %+v, after %+v", habitBefore, habitAfter)
			}
			if records, _ := store.ListCompletions(ctx, "h1", 0); len(records) != 1 {
				t.Errorf("expected 1 completion record, got %d", len(records))
			}
			if statsAfter, _ := store.GetStats(ctx, "u1"); statsAfter != statsBefore {
				t.Errorf("stats changed: before %+v, after %+v", statsBefore, statsAfter)
			}
			if progressAfter, _ := store.GetProgress(ctx, "u1"); len(progressAfter) != len(progressBefore) {
				t.Errorf("achievement rows changed: before %d, after %d", len(progressBefore), len(progressAfter))
			}
			if rec.accepted != 0 || len(rec.rejected) != 1 || len(rec.unlocked) != 0 {
				t.Errorf("expected one rejection only, got %+v", rec)
			}
		})
	}
}
