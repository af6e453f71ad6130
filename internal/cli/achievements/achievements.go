// Package achievements implements the stats and achievement commands.
package achievements

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/ropeline/internal/achievement"
	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/streak"
)

var boxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	stats, err := ctx.Progress.Stats(bg, me.ID, ctx.Now())
	if err != nil {
		return err
	}
	list, err := ctx.Store.ListHabits(bg, me.ID, storage.HabitFilter{})
	if err != nil {
		return err
	}

	summary := strings.Join([]string{
		cli.TitleStyle.Render(me.DisplayName),
		fmt.Sprintf("Points:          %d", stats.TotalPoints),
		fmt.Sprintf("Current streak:  %s", cli.Pluralize(stats.CurrentStreak, "day")),
		fmt.Sprintf("Longest streak:  %s", cli.Pluralize(stats.LongestStreak, "day")),
		fmt.Sprintf("Completions:     %d", stats.TotalHabitsCompleted),
		fmt.Sprintf("Friends:         %d", stats.FriendCount),
		fmt.Sprintf("Challenges:      %d", stats.ChallengesJoined),
	}, "\n")
	ctx.Println(boxStyle.Render(summary))

	now := ctx.Now()
	loc := cli.Location(me)
	for _, h := range list {
		strength := streak.Strength(h, now, loc)
		ctx.Printf("%-24s %s %3d%%  %s\n", h.Name, cli.Bar(strength, 100, 20), strength,
			cli.MutedStyle.Render(cli.Pluralize(streak.Current(h, now, loc), "day")))
	}
	return nil
}

type AchievementsCmd struct {
	List   ListCmd   `cmd:"" help:"Show achievements and progress." default:"1"`
	Import ImportCmd `cmd:"" help:"Replace the achievement catalog from a YAML file (admin only)."`
	Unlock UnlockCmd `cmd:"" help:"Grant a special achievement to a user (admin only)."`
}

type ListCmd struct {
	Locked bool `help:"Only show achievements not yet unlocked."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	catalog, err := ctx.Store.ListAchievements(bg)
	if err != nil {
		return err
	}
	progress, err := ctx.Store.GetProgress(bg, me.ID)
	if err != nil {
		return err
	}
	stats, err := ctx.Progress.Stats(bg, me.ID, ctx.Now())
	if err != nil {
		return err
	}
	byID := make(map[string]models.UserAchievement, len(progress))
	for _, p := range progress {
		byID[p.AchievementID] = p
	}

	var category models.AchievementCategory
	for _, def := range catalog {
		p := byID[def.ID]
		if c.Locked && p.Completed {
			continue
		}
		if def.Category != category {
			category = def.Category
			ctx.Println(cli.TitleStyle.Render(strings.ToUpper(string(category))))
		}
		ctx.Println(formatAchievement(def, p, stats))
	}
	return nil
}

func formatAchievement(def models.Achievement, p models.UserAchievement, stats models.UserStats) string {
	if p.Completed {
		when := ""
		if p.UnlockedAt != nil {
			when = " " + p.UnlockedAt.Format("2006-01-02")
		}
		return fmt.Sprintf("  %s %s (+%d)%s", cli.SuccessStyle.Render("★"), def.Name, def.Points, cli.MutedStyle.Render(when))
	}
	if def.Category == models.AchievementSpecial {
		return fmt.Sprintf("  ☆ %s %s", def.Name, cli.MutedStyle.Render(def.Description))
	}
	value, _ := achievement.CounterValue(stats, def.Counter)
	return fmt.Sprintf("  ☆ %s %s %d/%d", def.Name, cli.Bar(value, def.Requirement, 10), min(value, def.Requirement), def.Requirement)
}

type ImportCmd struct {
	File string `arg:"" help:"YAML catalog file." type:"existingfile"`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.RequireAdmin(bg); err != nil {
		return err
	}

	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()
	catalog, err := achievement.LoadCatalog(f)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()
	if err := ctx.Store.ReplaceCatalog(bg, catalog); err != nil {
		return err
	}
	ctx.Printf("Imported %d achievements\n", len(catalog))

	users, err := ctx.Store.ListUsers(bg)
	if err != nil {
		return err
	}
	unlocked := 0
	for _, u := range users {
		res, err := ctx.Progress.Reevaluate(bg, u.ID, ctx.Now())
		if err != nil {
			return fmt.Errorf("re-evaluating %s: %w", u.Email, err)
		}
		unlocked += len(res.Unlocked)
	}
	ctx.Printf("Re-evaluated %d users, %d new unlocks\n", len(users), unlocked)
	return nil
}

type UnlockCmd struct {
	Email         string `arg:"" help:"Email of the user to reward."`
	AchievementID string `arg:"" name:"achievement" help:"Special achievement id."`
}

func (c *UnlockCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.RequireAdmin(bg); err != nil {
		return err
	}
	target, err := ctx.Store.GetUserByEmail(bg, c.Email)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Email, err)
	}
	res, err := ctx.Progress.UnlockSpecial(bg, target.ID, c.AchievementID, ctx.Now())
	if err != nil {
		return err
	}
	if len(res.Unlocked) == 0 {
		ctx.Printf("%s already has %s\n", target.Email, c.AchievementID)
		return nil
	}
	ctx.Printf("Granted %s to %s (%d points)\n", c.AchievementID, target.Email, res.Stats.TotalPoints)
	return nil
}
