package system

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/ropeline/internal/achievement"
	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/models"
)

type InitCmd struct {
	Force   bool   `help:"Delete the existing SQLite database before initializing."`
	Yes     bool   `short:"y" help:"Do not ask for confirmation with --force."`
	Catalog string `help:"Seed achievements from this YAML catalog instead of the built-in one." type:"existingfile"`
}

// confirm is replaced in tests
var confirm = func(title string) (bool, error) {
	ok := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Affirmative("Delete").Negative("Cancel").Value(&ok),
	)).Run()
	return ok, err
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized %s storage at: %s\n", constants.AppName, ctx.Store.GetConfigPath())

	seeded, err := seedCatalog(context.Background(), ctx, c.Catalog)
	if err != nil {
		return err
	}
	if seeded > 0 {
		ctx.Printf("Seeded %d achievements\n", seeded)
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	path, ok := ctx.SQLitePath()
	if !ok {
		return errors.New("--force is only supported for SQLite storage")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to access existing database: %w", err)
	}

	if !c.Yes {
		ok, err := confirm(fmt.Sprintf("Delete %s and all of its data?", path))
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("aborted")
		}
	}

	ctx.PerformAutomaticBackup()
	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close existing database: %w", err)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
	}
	ctx.Printf("Deleted existing database at: %s\n", path)
	return nil
}

// seedCatalog installs the catalog from path, or the built-in catalog when
// the store has none yet. It returns how many entries were written.
func seedCatalog(ctx context.Context, app *cli.Context, path string) (int, error) {
	var (
		catalog []models.Achievement
		err     error
	)
	if path != "" {
		catalog, err = loadCatalogFile(path)
	} else {
		existing, lerr := app.Store.ListAchievements(ctx)
		if lerr != nil {
			return 0, lerr
		}
		if len(existing) > 0 {
			return 0, nil
		}
		catalog, err = achievement.DefaultCatalog()
	}
	if err != nil {
		return 0, err
	}
	if err := app.Store.ReplaceCatalog(ctx, catalog); err != nil {
		return 0, err
	}
	return len(catalog), nil
}

func loadCatalogFile(path string) ([]models.Achievement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return achievement.LoadCatalog(f)
}
