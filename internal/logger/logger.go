// Package logger holds the process-wide structured logger. Every helper is a
// no-op until Init runs, so packages may log unconditionally.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/ropeline/internal/constants"
)

var (
	Logger *log.Logger
	file   *lumberjack.Logger
)

type Config struct {
	Debug     bool
	ConfigDir string
	// Server switches to JSON lines mirrored to stderr at info level
	Server bool
	// Output replaces stderr for the mirrored stream
	Output io.Writer
}

// Init opens the rotating log file under ConfigDir/logs and installs the logger
func Init(cfg Config) error {
	logDir := filepath.Join(cfg.ConfigDir, constants.LogDirName)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}

	Close()
	file = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.AppName+".log"),
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   true,
	}

	opts := log.Options{
		ReportTimestamp: true,
		ReportCaller:    cfg.Debug,
		Level:           log.WarnLevel,
		Prefix:          constants.AppName,
	}
	var w io.Writer = file
	if cfg.Server || cfg.Debug {
		mirror := cfg.Output
		if mirror == nil {
			mirror = os.Stderr
		}
		w = io.MultiWriter(mirror, file)
		opts.Level = log.InfoLevel
	}
	if cfg.Server {
		opts.Formatter = log.JSONFormatter
	}
	if cfg.Debug {
		opts.Level = log.DebugLevel
	}

	Logger = log.NewWithOptions(w, opts)
	return nil
}

// Close flushes and releases the log file
func Close() {
	if file != nil {
		_ = file.Close()
		file = nil
	}
	Logger = nil
}

func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
