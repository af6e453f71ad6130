package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/keyring"
	"github.com/julianstephens/ropeline/internal/logger"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/storage/postgres"
	"github.com/julianstephens/ropeline/internal/storage/sqlite"
)

// ConnectionEnv names the environment variable holding a PostgreSQL connection string
const ConnectionEnv = "ROPELINE_DB_CONNECTION"

// Source records where the resolved storage location came from
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "environment"
	SourceKeyring Source = "keyring"
)

// ExpandPath replaces a leading ~ with the home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ResolveLocation picks the storage location. The environment wins, then an
// explicit connection string, then a connection string in the keyring when
// the config flag was left at its default, then the SQLite path.
func ResolveLocation(config string) (string, Source) {
	if env := strings.TrimSpace(os.Getenv(ConnectionEnv)); env != "" {
		return env, SourceEnv
	}
	if postgres.IsConnString(config) {
		return config, SourceFlag
	}
	if config == "" || config == constants.DefaultConfigPath {
		if connStr, err := keyring.Get(keyring.ConnectionString); err == nil {
			return connStr, SourceKeyring
		} else if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("Keyring lookup failed", "error", err)
		}
	}
	if config == "" {
		config = constants.DefaultConfigPath
	}
	return config, SourceFlag
}

// OpenStore builds an unloaded provider for config. Connection strings given
// on the command line must not embed credentials.
func OpenStore(config string) (storage.Provider, error) {
	location, source := ResolveLocation(config)
	if postgres.IsConnString(location) {
		if err := postgres.ValidateConnString(location); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) || source == SourceFlag {
				return nil, err
			}
		}
		logger.Debug("Using PostgreSQL storage", "source", source)
		return postgres.New(location), nil
	}

	path, err := ExpandPath(location)
	if err != nil {
		return nil, err
	}
	logger.Debug("Using SQLite storage", "path", path)
	return sqlite.NewStore(path), nil
}

// ConfigDir returns the directory for logs and backups
func ConfigDir(config string) string {
	location, _ := ResolveLocation(config)
	if !postgres.IsConnString(location) {
		if path, err := ExpandPath(location); err == nil {
			return filepath.Dir(path)
		}
	}
	path, err := ExpandPath(constants.DefaultConfigPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(path)
}
