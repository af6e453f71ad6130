package system

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/notifier"
	"github.com/julianstephens/ropeline/internal/storage/sqlite"
)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ropeline.db")
	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	ctx := cli.NewContext(store, notifier.Nop{}, "ada@example.com", "")
	out := &bytes.Buffer{}
	ctx.Out = out
	ctx.Now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return ctx, out, dbPath
}

func TestInitCmd(t *testing.T) {
	ctx, out, dbPath := setupTestContext(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file was not created: %v", err)
	}
	if !strings.Contains(out.String(), "Seeded") {
		t.Errorf("expected catalog to be seeded, got %q", out.String())
	}

	catalog, err := ctx.Store.ListAchievements(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) == 0 {
		t.Fatal("catalog is empty after init")
	}

	// second run keeps the catalog and does not reseed
	out.Reset()
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if strings.Contains(out.String(), "Seeded") {
		t.Errorf("second init reseeded the catalog: %q", out.String())
	}
}

func TestInitCmdCustomCatalog(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	yaml := `achievements:
  - id: first
    name: First
    category: completion
    requirement: 1
    points: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	if err := (&InitCmd{Catalog: path}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	catalog, err := ctx.Store.ListAchievements(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 1 || catalog[0].ID != "first" {
		t.Errorf("expected custom catalog, got %+v", catalog)
	}
}

func TestInitCmdForce(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Store.ReplaceCatalog(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	prompted := false
	original := confirm
	confirm = func(string) (bool, error) {
		prompted = true
		return false, nil
	}
	t.Cleanup(func() { confirm = original })

	if err := (&InitCmd{Force: true}).Run(ctx); err == nil {
		t.Fatal("expected abort when confirmation is declined")
	}
	if !prompted {
		t.Error("expected a confirmation prompt")
	}

	if err := (&InitCmd{Force: true, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
	catalog, err := ctx.Store.ListAchievements(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) == 0 {
		t.Error("expected a fresh database with the default catalog")
	}
}

func TestMigrateCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("expected up to date message, got %q", out.String())
	}

	out.Reset()
	if err := (&MigrateCmd{Status: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.HasPrefix(got, "Schema version ") || strings.Contains(got, "pending") {
		t.Errorf("unexpected status output %q", got)
	}
}

func TestDoctorCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor failed on a fresh database: %v\n%s", err, out.String())
	}
	for _, want := range []string{"✓ Database reachable: OK", "✓ Achievement catalog: OK", "⚠ Backups present: WARNING"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("doctor output missing %q:\n%s", want, out.String())
		}
	}
}

func TestDoctorCmdEmptyCatalog(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Store.ReplaceCatalog(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("expected doctor to fail with an empty catalog")
	}
	if !strings.Contains(out.String(), "❌ Achievement catalog: FAIL") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestDoctorCmdUninitialized(t *testing.T) {
	ctx, out, _ := setupTestContext(t)

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("expected doctor to fail without a database")
	}
	if !strings.Contains(out.String(), "⊘ Schema version: SKIPPED") {
		t.Errorf("expected dependent checks to be skipped:\n%s", out.String())
	}
}

func TestBackupCommands(t *testing.T) {
	ctx, out, dbPath := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No backups found.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Backup created") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "1 total") {
		t.Errorf("unexpected output: %q", out.String())
	}

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(dbPath), "backups"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one backup file, got %v (%v)", entries, err)
	}
	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: entries[0].Name(), Yes: true}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Database restored") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestResolveBackupPath(t *testing.T) {
	dir := t.TempDir()
	name := "ropeline-20260310-120000.db"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := resolveBackupPath(name, dir)
	if err != nil || got != filepath.Join(dir, name) {
		t.Errorf("resolveBackupPath(name) = %q, %v", got, err)
	}
	if _, err := resolveBackupPath(filepath.Join(dir, "missing.db"), dir); err == nil {
		t.Error("expected error for a missing absolute path")
	}
	if _, err := resolveBackupPath("missing.db", dir); err == nil {
		t.Error("expected error for a missing name")
	}
}
