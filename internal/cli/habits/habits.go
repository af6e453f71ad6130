// Package habits implements the habit commands for the acting user.
package habits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/ropeline/internal/cli"
	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/habits"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/streak"
)

type HabitCmd struct {
	Add      HabitAddCmd      `cmd:"" help:"Add a new habit."`
	List     HabitListCmd     `cmd:"" help:"List habits."`
	Edit     HabitEditCmd     `cmd:"" help:"Edit a habit."`
	Complete HabitCompleteCmd `cmd:"" help:"Mark a habit done for today."`
	Pause    HabitPauseCmd    `cmd:"" help:"Pause a habit."`
	Resume   HabitResumeCmd   `cmd:"" help:"Resume a paused or archived habit."`
	Archive  HabitArchiveCmd  `cmd:"" help:"Archive a habit."`
	Delete   HabitDeleteCmd   `cmd:"" help:"Delete a habit (soft delete)."`
	Restore  HabitRestoreCmd  `cmd:"" help:"Restore a deleted habit."`
	History  HabitHistoryCmd  `cmd:"" help:"Show completion history."`
}

// resolve finds one of the user's habits by id or case-insensitive name.
// Live habits win over deleted ones with the same name.
func resolve(ctx context.Context, app *cli.Context, userID, ref string) (models.Habit, error) {
	all, err := app.Store.ListHabits(ctx, userID, storage.HabitFilter{IncludeArchived: true, IncludeDeleted: true})
	if err != nil {
		return models.Habit{}, err
	}
	var match *models.Habit
	for i, h := range all {
		if h.ID == ref {
			return h, nil
		}
		if !strings.EqualFold(h.Name, strings.TrimSpace(ref)) {
			continue
		}
		switch {
		case match == nil:
			match = &all[i]
		case match.Status == models.HabitDeleted && h.Status != models.HabitDeleted:
			match = &all[i]
		case match.Status == models.HabitDeleted && h.UpdatedAt.After(match.UpdatedAt):
			match = &all[i]
		}
	}
	if match == nil {
		return models.Habit{}, fmt.Errorf("%w: %q", apperrors.ErrHabitNotFound, ref)
	}
	return *match, nil
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	Description string `help:"Optional description."`
	Category    string `help:"Category: health, productivity, learning, mindfulness, social, finance, creativity or custom." default:"custom"`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	habit, err := ctx.Habits.Create(bg, me.ID, habits.CreateInput{
		Name:        c.Name,
		Description: c.Description,
		Category:    models.HabitCategory(c.Category),
	}, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("Added habit: %s\n", habit.Name)
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
	Deleted  bool `help:"Include deleted habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	list, err := ctx.Habits.List(bg, me.ID, storage.HabitFilter{IncludeArchived: c.Archived, IncludeDeleted: c.Deleted})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	now := ctx.Now()
	loc := cli.Location(me)
	for _, h := range list {
		mark := "[ ]"
		if streak.CompletedToday(h, now, loc) {
			mark = cli.SuccessStyle.Render("[x]")
		}
		status := ""
		if h.Status != models.HabitActive {
			status = cli.MutedStyle.Render(" [" + strings.ToUpper(string(h.Status)) + "]")
		}
		ctx.Printf("%s %s%s  %s  strength %s %d%%\n",
			mark, h.Name, status,
			cli.Pluralize(streak.Current(h, now, loc), "day"),
			cli.Bar(streak.Strength(h, now, loc), 100, 10), streak.Strength(h, now, loc))
	}
	return nil
}

type HabitEditCmd struct {
	Habit       string  `arg:"" help:"Habit name or id."`
	Name        *string `help:"New name."`
	Description *string `help:"New description."`
	Category    *string `help:"New category."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	h, err := resolve(bg, ctx, me.ID, c.Habit)
	if err != nil {
		return err
	}

	in := habits.UpdateInput{Name: c.Name, Description: c.Description}
	if c.Category != nil {
		cat := models.HabitCategory(*c.Category)
		in.Category = &cat
	}
	updated, err := ctx.Habits.Update(bg, me.ID, h.ID, in, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("Updated habit: %s\n", updated.Name)
	return nil
}

type HabitCompleteCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *HabitCompleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	h, err := resolve(bg, ctx, me.ID, c.Habit)
	if err != nil {
		return err
	}
	// the notifier prints the outcome
	res, err := ctx.Progress.CompleteHabit(bg, me.ID, h.ID, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Println(cli.MutedStyle.Render(fmt.Sprintf("Total points: %d", res.Stats.TotalPoints)))
	return nil
}

// HabitRef is the argument shared by the status commands
type HabitRef struct {
	Habit string `arg:"" help:"Habit name or id."`
}

type statusOp func(ctx context.Context, userID, habitID string, now time.Time) (models.Habit, error)

func (r HabitRef) apply(app *cli.Context, op func(*habits.Service) statusOp) error {
	bg := context.Background()
	me, err := app.CurrentUser(bg)
	if err != nil {
		return err
	}
	h, err := resolve(bg, app, me.ID, r.Habit)
	if err != nil {
		return err
	}
	updated, err := op(app.Habits)(bg, me.ID, h.ID, app.Now())
	if err != nil {
		return err
	}
	app.Printf("%s is now %s\n", updated.Name, updated.Status)
	return nil
}

type HabitPauseCmd struct{ HabitRef }

func (c *HabitPauseCmd) Run(ctx *cli.Context) error {
	return c.apply(ctx, func(s *habits.Service) statusOp { return s.Pause })
}

type HabitResumeCmd struct{ HabitRef }

func (c *HabitResumeCmd) Run(ctx *cli.Context) error {
	return c.apply(ctx, func(s *habits.Service) statusOp { return s.Resume })
}

type HabitArchiveCmd struct{ HabitRef }

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	return c.apply(ctx, func(s *habits.Service) statusOp { return s.Archive })
}

type HabitDeleteCmd struct{ HabitRef }

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	ctx.PerformAutomaticBackup()
	return c.apply(ctx, func(s *habits.Service) statusOp { return s.Delete })
}

type HabitRestoreCmd struct{ HabitRef }

func (c *HabitRestoreCmd) Run(ctx *cli.Context) error {
	return c.apply(ctx, func(s *habits.Service) statusOp { return s.Restore })
}

type HabitHistoryCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Limit int    `help:"Maximum records to show (0 for all)." default:"14"`
}

func (c *HabitHistoryCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	h, err := resolve(bg, ctx, me.ID, c.Habit)
	if err != nil {
		return err
	}
	records, err := ctx.Habits.History(bg, me.ID, h.ID, c.Limit)
	if err != nil {
		return err
	}

	ctx.Println(cli.TitleStyle.Render(h.Name))
	if len(records) == 0 {
		ctx.Println("No completions yet.")
		return nil
	}
	for _, r := range records {
		ctx.Printf("%s  streak %-4d +%d\n", r.Day, r.StreakAtCompletion, r.PointsAwarded)
	}
	ctx.Printf("\nLongest streak: %s, total completions: %d\n", cli.Pluralize(h.LongestStreak, "day"), h.TotalCompletions)
	return nil
}
