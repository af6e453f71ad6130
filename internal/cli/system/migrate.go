package system

import (
	"fmt"

	"github.com/julianstephens/ropeline/internal/cli"
)

type MigrateCmd struct {
	Status bool `help:"Report schema versions without applying anything."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if c.Status {
		current, latest, err := ctx.Store.SchemaVersion()
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		ctx.Printf("Schema version %d of %d", current, latest)
		if pending := latest - current; pending > 0 {
			ctx.Printf(" (%d pending)", pending)
		}
		ctx.Println()
		return nil
	}

	// the runner reports each step, including the up-to-date case
	if _, err := ctx.Store.Migrate(func(msg string) { ctx.Println(msg) }); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
