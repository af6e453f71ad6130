package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/keyring"
	"github.com/julianstephens/ropeline/internal/storage/postgres"
)

type ConfigCmd struct {
	SetConnection   SetConnectionCmd   `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
	ClearConnection ClearConnectionCmd `cmd:"" help:"Remove the stored connection string."`
	SetJWTSecret    SetJWTSecretCmd    `cmd:"" name:"set-jwt-secret" help:"Store the API token signing secret in the OS keyring."`
	Status          ConfigStatusCmd    `cmd:"" help:"Show keyring status."`
}

type SetConnectionCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string."`
}

func (c *SetConnectionCmd) Run(ctx *cli.Context) error {
	if err := postgres.ValidateConnString(c.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		ctx.Println(cli.WarnStyle.Render("⚠️  Connection string contains a password. It is stored as-is in the encrypted OS keyring."))
	}
	if err := keyring.Set(keyring.ConnectionString, c.ConnectionString); err != nil {
		return err
	}
	ctx.Println("✓ Connection string stored in OS keyring")
	ctx.Println("  ropeline will use it when --config is left at its default")
	return nil
}

type ClearConnectionCmd struct{}

func (c *ClearConnectionCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(keyring.ConnectionString); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}
	ctx.Println("✓ Connection string deleted from OS keyring")
	return nil
}

type SetJWTSecretCmd struct {
	Secret string `arg:"" help:"Signing secret, at least 32 characters."`
}

func (c *SetJWTSecretCmd) Run(ctx *cli.Context) error {
	if len(c.Secret) < 32 {
		return errors.New("secret must be at least 32 characters")
	}
	if err := keyring.Set(keyring.JWTSecret, c.Secret); err != nil {
		return err
	}
	ctx.Println("✓ Token signing secret stored in OS keyring")
	return nil
}

type ConfigStatusCmd struct{}

func (c *ConfigStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("✓ OS keyring is available")
	for _, s := range []keyring.Secret{keyring.ConnectionString, keyring.JWTSecret} {
		if _, err := keyring.Get(s); err == nil {
			ctx.Printf("✓ %s is stored\n", s)
		} else {
			ctx.Printf("ℹ %s is not stored\n", s)
		}
	}
	return nil
}
