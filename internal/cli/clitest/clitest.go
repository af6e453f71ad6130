// Package clitest builds command contexts over a throwaway SQLite database.
package clitest

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/ropeline/internal/achievement"
	"github.com/julianstephens/ropeline/internal/auth"
	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/notifier"
	"github.com/julianstephens/ropeline/internal/storage/sqlite"
)

// Now is the fixed clock every test context starts with
var Now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// NewContext returns an initialized context with the default catalog
// installed and all output captured in the returned buffer.
func NewContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "ropeline.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	catalog, err := achievement.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceCatalog(context.Background(), catalog); err != nil {
		t.Fatal(err)
	}

	ctx := cli.NewContext(store, notifier.Nop{}, "", "")
	out := &bytes.Buffer{}
	ctx.Out = out
	ctx.Now = func() time.Time { return Now }
	return ctx, out
}

// AddUser registers a user and makes them the acting user
func AddUser(t *testing.T, ctx *cli.Context, email string) {
	t.Helper()
	if _, err := ctx.Accounts.Register(context.Background(), auth.RegisterInput{Email: email, Timezone: "UTC"}, ctx.Now()); err != nil {
		t.Fatalf("failed to register %s: %v", email, err)
	}
	ctx.UserEmail = email
}
