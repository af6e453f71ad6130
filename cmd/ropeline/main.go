package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/cli/achievements"
	"github.com/julianstephens/ropeline/internal/cli/habits"
	"github.com/julianstephens/ropeline/internal/cli/social"
	"github.com/julianstephens/ropeline/internal/cli/system"
	"github.com/julianstephens/ropeline/internal/cli/users"
	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/keyring"
	"github.com/julianstephens/ropeline/internal/logger"
	"github.com/julianstephens/ropeline/internal/notifier"
)

var CLI struct {
	Version   kong.VersionFlag
	Config    string `help:"SQLite database path or PostgreSQL connection string. PostgreSQL passwords must come from ROPELINE_DB_CONNECTION, the OS keyring or .pgpass." default:"${default_config}" env:"ROPELINE_CONFIG"`
	User      string `help:"Email of the acting user." env:"ROPELINE_USER"`
	Debug     bool   `help:"Log debug output to stderr." env:"ROPELINE_DEBUG"`
	JWTSecret string `name:"jwt-secret" help:"API token signing secret (default: OS keyring)." env:"ROPELINE_JWT_SECRET"`

	Init    system.InitCmd    `cmd:"" help:"Initialize ropeline storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Serve   system.ServeCmd   `cmd:"" help:"Run the HTTP API."`

	Users        users.UserCmd                `cmd:"" name:"user" help:"Manage users."`
	Habit        habits.HabitCmd              `cmd:"" help:"Manage and complete habits."`
	Stats        achievements.StatsCmd        `cmd:"" help:"Show your stats."`
	Achievements achievements.AchievementsCmd `cmd:"" help:"Show and manage achievements."`
	Friend       social.FriendCmd             `cmd:"" help:"Manage friends."`
	Challenge    social.ChallengeCmd          `cmd:"" help:"Browse and join challenges."`
	Backup       system.BackupCmd             `cmd:"" help:"Manage database backups."`
	Settings     system.ConfigCmd             `cmd:"" name:"config" help:"Manage stored credentials."`
}

// commands that open or skip the store themselves
var noLoad = []string{"init", "doctor", "config"}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with streaks, rope strength and achievements"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":          constants.Version,
			"default_config":   constants.DefaultConfigPath,
			"default_addr":     constants.DefaultServerAddr,
			"default_timezone": constants.DefaultTimezone,
		},
	)

	command := ctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: cli.ConfigDir(CLI.Config),
		Server:    strings.HasPrefix(command, "serve"),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store, err := cli.OpenStore(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}

	if needsLoad(command) {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	n := notifier.Multi{notifier.NewConsole(os.Stdout), notifier.NewTray()}
	secret := keyring.Lookup(keyring.JWTSecret, CLI.JWTSecret)
	appCtx := cli.NewContext(store, n, CLI.User, secret)

	err = ctx.Run(appCtx)
	if cerr := store.Close(); cerr != nil {
		logger.Warn("Failed to close store", "error", cerr)
	}
	errors.Fatal(err)
	logger.Close()
}

func needsLoad(command string) bool {
	name, _, _ := strings.Cut(command, " ")
	for _, skip := range noLoad {
		if name == skip {
			return false
		}
	}
	return true
}
