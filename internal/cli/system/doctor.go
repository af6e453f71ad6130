package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/ropeline/internal/achievement"
	"github.com/julianstephens/ropeline/internal/backup"
	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func(context.Context, *cli.Context) error
	// needsDB checks are skipped when the database cannot be loaded
	needsDB bool
	// warnOnly failures do not fail the command
	warnOnly bool
}

var checks = []check{
	{name: "Database reachable", run: checkDBReachable},
	{name: "Schema version", run: checkSchemaVersion, needsDB: true},
	{name: "Achievement catalog", run: checkCatalog, needsDB: true},
	{name: "User timezones", run: checkUserTimezones, needsDB: true},
	{name: "Habit streaks", run: checkHabitStreaks, needsDB: true},
	{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
	{name: "Clock/timezone", run: checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	bg := context.Background()
	hasError := false
	dbReachable := true
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(bg, ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
			if c.name == "Database reachable" {
				dbReachable = false
			}
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx context.Context, app *cli.Context) error {
	if err := app.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	return app.Store.Ping(ctx)
}

func checkSchemaVersion(_ context.Context, app *cli.Context) error {
	current, latest, err := app.Store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkCatalog(ctx context.Context, app *cli.Context) error {
	catalog, err := app.Store.ListAchievements(ctx)
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		return errors.New("achievement catalog is empty, run 'ropeline achievements import' or 'ropeline init'")
	}
	return achievement.ValidateCatalog(catalog)
}

func checkUserTimezones(ctx context.Context, app *cli.Context) error {
	users, err := app.Store.ListUsers(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, u := range users {
		if err := utils.ValidateTimezone(u.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", u.Email, err))
		}
	}
	return errors.Join(errs...)
}

func checkHabitStreaks(ctx context.Context, app *cli.Context) error {
	users, err := app.Store.ListUsers(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, u := range users {
		list, err := app.Store.ListHabits(ctx, u.ID, storage.HabitFilter{IncludeArchived: true, IncludeDeleted: true})
		if err != nil {
			return err
		}
		for _, h := range list {
			if h.CurrentStreak > h.LongestStreak {
				errs = append(errs, fmt.Errorf("habit %s: current streak %d exceeds longest %d", h.ID, h.CurrentStreak, h.LongestStreak))
			}
			if h.CurrentStreak > h.TotalCompletions {
				errs = append(errs, fmt.Errorf("habit %s: current streak %d exceeds completions %d", h.ID, h.CurrentStreak, h.TotalCompletions))
			}
			if h.TotalCompletions > 0 && h.LastCompletedAt == nil {
				errs = append(errs, fmt.Errorf("habit %s: has completions but no last completion time", h.ID))
			}
		}
	}
	return errors.Join(errs...)
}

func checkBackupsPresent(_ context.Context, app *cli.Context) error {
	path, ok := app.SQLitePath()
	if !ok {
		return nil
	}
	backups, err := backup.NewManager(path).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found, run 'ropeline backup create'")
	}
	if age := time.Since(backups[0].Timestamp); age > 7*24*time.Hour {
		return fmt.Errorf("latest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

func checkClockTimezone(_ context.Context, _ *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	if _, err := utils.LoadLocation("Local"); err != nil {
		return fmt.Errorf("failed to load local timezone: %w", err)
	}
	return nil
}
