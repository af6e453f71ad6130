// Package cli holds the state shared by every ropeline command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/ropeline/internal/auth"
	"github.com/julianstephens/ropeline/internal/backup"
	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/habits"
	"github.com/julianstephens/ropeline/internal/logger"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/notifier"
	"github.com/julianstephens/ropeline/internal/progress"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/storage/sqlite"
	"github.com/julianstephens/ropeline/internal/utils"
)

// ErrNoActingUser is returned by per-user commands when --user is not set
var ErrNoActingUser = errors.New("no acting user, pass --user or set ROPELINE_USER")

type Context struct {
	Store    storage.Provider
	Habits   *habits.Service
	Progress *progress.Service
	Accounts *auth.Accounts
	Tokens   *auth.Manager

	// UserEmail is the acting user for per-user commands
	UserEmail string
	JWTSecret string

	Out io.Writer
	Now func() time.Time
}

// NewContext wires the services around store
func NewContext(store storage.Provider, n notifier.Notifier, userEmail, jwtSecret string) *Context {
	tokens := auth.NewManager(jwtSecret, constants.DefaultTokenTTL)
	return &Context{
		Store:     store,
		Habits:    habits.New(store),
		Progress:  progress.New(store, n),
		Accounts:  auth.NewAccounts(store, tokens),
		Tokens:    tokens,
		UserEmail: strings.TrimSpace(userEmail),
		JWTSecret: jwtSecret,
		Out:       os.Stdout,
		Now:       time.Now,
	}
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// CurrentUser loads the acting user named by UserEmail
func (c *Context) CurrentUser(ctx context.Context) (models.User, error) {
	if c.UserEmail == "" {
		return models.User{}, ErrNoActingUser
	}
	user, err := c.Store.GetUserByEmail(ctx, c.UserEmail)
	if err != nil {
		return models.User{}, fmt.Errorf("acting user %s: %w", c.UserEmail, err)
	}
	return user, nil
}

// Location returns the user's timezone, falling back to local time
func Location(user models.User) *time.Location {
	loc, err := utils.LoadLocation(user.Timezone)
	if err != nil {
		logger.Warn("Invalid user timezone, using local time", "user", user.ID, "timezone", user.Timezone)
		return time.Local
	}
	return loc
}

// SQLitePath returns the database file when the store is SQLite
func (c *Context) SQLitePath() (string, bool) {
	if s, ok := c.Store.(*sqlite.Store); ok {
		return s.GetConfigPath(), true
	}
	return "", false
}

// PerformAutomaticBackup snapshots a SQLite database before destructive
// commands. Failures are logged and never interrupt the command.
func (c *Context) PerformAutomaticBackup() {
	path, ok := c.SQLitePath()
	if !ok {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return
	}
	if _, err := backup.NewManager(path).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// RequireAdmin loads the acting user and checks the admin role
func (c *Context) RequireAdmin(ctx context.Context) (models.User, error) {
	me, err := c.CurrentUser(ctx)
	if err != nil {
		return models.User{}, err
	}
	return c.Accounts.RequireAdmin(ctx, me.ID)
}
