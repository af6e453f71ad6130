// Package users implements the account commands.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/ropeline/internal/auth"
	"github.com/julianstephens/ropeline/internal/cli"
)

type UserCmd struct {
	Add      UserAddCmd      `cmd:"" help:"Register a user. The first user becomes an admin."`
	List     UserListCmd     `cmd:"" help:"List users (admin only)."`
	Promote  UserPromoteCmd  `cmd:"" help:"Grant the admin role (admin only)."`
	Timezone UserTimezoneCmd `cmd:"" help:"Set the acting user's timezone."`
	Password UserPasswordCmd `cmd:"" help:"Set the acting user's API password."`
}

// promptPassword is replaced in tests
var promptPassword = func(title string) (string, error) {
	var password, again string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title(title).EchoMode(huh.EchoModePassword).Value(&password).
			Validate(func(s string) error {
				if len(s) < 8 {
					return errors.New("password must be at least 8 characters")
				}
				return nil
			}),
		huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&again).
			Validate(func(s string) error {
				if s != password {
					return errors.New("passwords do not match")
				}
				return nil
			}),
	)).Run()
	return password, err
}

type UserAddCmd struct {
	Email    string `arg:"" help:"Email address."`
	Name     string `help:"Display name (default: the email's local part)."`
	Timezone string `help:"IANA timezone." default:"${default_timezone}"`
	Password bool   `help:"Prompt for a password so the user can sign in to the API."`
}

func (c *UserAddCmd) Run(ctx *cli.Context) error {
	in := auth.RegisterInput{Email: c.Email, DisplayName: c.Name, Timezone: c.Timezone}
	if c.Password {
		pw, err := promptPassword("Password for " + c.Email)
		if err != nil {
			return err
		}
		in.Password = pw
	}

	user, err := ctx.Accounts.Register(context.Background(), in, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("Added user %s (%s)\n", user.Email, user.Role)
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.RequireAdmin(bg); err != nil {
		return err
	}
	users, err := ctx.Store.ListUsers(bg)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ctx.Println("No users found.")
		return nil
	}
	for _, u := range users {
		role := ""
		if u.IsAdmin() {
			role = cli.WarnStyle.Render(" [admin]")
		}
		ctx.Printf("%s  %s%s  %s\n", u.Email, u.DisplayName, role, cli.MutedStyle.Render(u.Timezone))
	}
	return nil
}

type UserPromoteCmd struct {
	Email string `arg:"" help:"Email of the user to promote."`
}

func (c *UserPromoteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.RequireAdmin(bg); err != nil {
		return err
	}
	target, err := ctx.Store.GetUserByEmail(bg, c.Email)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Email, err)
	}
	user, err := ctx.Accounts.Promote(bg, target.ID, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("%s is now an admin\n", user.Email)
	return nil
}

type UserTimezoneCmd struct {
	Timezone string `arg:"" help:"IANA timezone name, or Local."`
}

func (c *UserTimezoneCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	user, err := ctx.Accounts.SetTimezone(bg, me.ID, c.Timezone, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("Timezone for %s set to %s\n", user.Email, user.Timezone)
	return nil
}

type UserPasswordCmd struct{}

func (c *UserPasswordCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	pw, err := promptPassword("New password for " + me.Email)
	if err != nil {
		return err
	}
	if _, err := ctx.Accounts.SetPassword(bg, me.ID, pw, ctx.Now()); err != nil {
		return err
	}
	ctx.Println("Password updated")
	return nil
}
