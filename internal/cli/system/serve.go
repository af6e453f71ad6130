package system

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/server"
)

type ServeCmd struct {
	Addr    string   `help:"Listen address." default:"${default_addr}" env:"ROPELINE_ADDR"`
	Origins []string `help:"Allowed CORS origins." env:"ROPELINE_CORS_ORIGINS"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	if len(ctx.JWTSecret) < 32 {
		return errors.New("a token signing secret of at least 32 characters is required, set ROPELINE_JWT_SECRET or run 'ropeline config set-jwt-secret'")
	}

	api := &server.API{
		Store:    ctx.Store,
		Progress: ctx.Progress,
		Habits:   ctx.Habits,
		Accounts: ctx.Accounts,
		Tokens:   ctx.Tokens,
		Origins:  c.Origins,
		Now:      ctx.Now,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.Printf("Listening on %s\n", c.Addr)
	return server.Serve(sigCtx, c.Addr, api.Router())
}
