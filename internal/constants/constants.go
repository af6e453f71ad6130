package constants

import "time"

const (
	AppName              = "ropeline"
	DefaultKeyringUser   = "database-connection"
	JWTSecretKeyringUser = "jwt-secret"
	DefaultConfigPath    = "~/.config/ropeline/ropeline.db"
	Version              = "v0.3.0"

	// DateFormat is the calendar day format used for completion days (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "ropeline-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "ropeline-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.ropeline"

	// Completion commit retries on optimistic-concurrency conflicts
	CompletionMaxAttempts = 3
	CompletionRetryDelay  = 25 * time.Millisecond

	// Points
	PointsPerCompletion = 10
	WeeklyStreakBonus   = 5
	MaxStreakBonus      = 50

	// Rope strength
	StrengthHorizonDays   = 30
	StrengthMissedDayCost = 15

	// Server
	DefaultServerAddr   = ":8080"
	DefaultTokenTTL     = 24 * time.Hour
	RequestTimeout      = 30 * time.Second
	ShutdownGracePeriod = 10 * time.Second
	MaxRequestBodyBytes = 1 << 20

	DefaultTimezone = "Local"

	// Log rotation
	LogDirName    = "logs"
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28
)
