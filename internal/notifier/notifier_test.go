package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/julianstephens/ropeline/internal/models"
)

type recorder struct {
	accepted, rejected, unlocked int
	err                          error
}

func (r *recorder) CompletionAccepted(context.Context, models.Habit, models.CompletionRecord) error {
	r.accepted++
	return r.err
}

func (r *recorder) CompletionRejected(context.Context, string, error) error {
	r.rejected++
	return r.err
}

func (r *recorder) AchievementsUnlocked(context.Context, string, []models.Achievement) error {
	r.unlocked++
	return r.err
}

func TestMultiFansOut(t *testing.T) {
	boom := errors.New("boom")
	a := &recorder{}
	b := &recorder{err: boom}
	m := Multi{a, nil, b}
	ctx := context.Background()

	if err := m.CompletionAccepted(ctx, models.Habit{}, models.CompletionRecord{}); !errors.Is(err, boom) {
		t.Errorf("expected joined boom error, got %v", err)
	}
	if err := m.CompletionRejected(ctx, "h1", errors.New("nope")); !errors.Is(err, boom) {
		t.Errorf("expected joined boom error, got %v", err)
	}
	if err := m.AchievementsUnlocked(ctx, "u1", nil); !errors.Is(err, boom) {
		t.Errorf("expected joined boom error, got %v", err)
	}

	for _, r := range []*recorder{a, b} {
		if r.accepted != 1 || r.rejected != 1 || r.unlocked != 1 {
			t.Errorf("expected every event once, got %+v", r)
		}
	}

	if err := (Multi{a}).CompletionAccepted(ctx, models.Habit{}, models.CompletionRecord{}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	ctx := context.Background()

	habit := models.Habit{Name: "Meditate"}
	if err := c.CompletionAccepted(ctx, habit, models.CompletionRecord{StreakAtCompletion: 1, PointsAwarded: 10}); err != nil {
		t.Fatal(err)
	}
	if err := c.CompletionRejected(ctx, "h1", errors.New("habit already completed today")); err != nil {
		t.Fatal(err)
	}
	unlocked := []models.Achievement{{Name: "First Step", Points: 10}, {Name: "Ten Down", Points: 25}}
	if err := c.AchievementsUnlocked(ctx, "u1", unlocked); err != nil {
		t.Fatal(err)
	}
	if err := c.AchievementsUnlocked(ctx, "u1", nil); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"Meditate done: 1 day in a row, +10 points",
		"habit already completed today",
		"First Step, Ten Down (+35 points)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}
}
