// Package social implements the friend and challenge commands.
package social

import (
	"context"
	"fmt"

	"github.com/julianstephens/ropeline/internal/cli"
	"github.com/julianstephens/ropeline/internal/progress"
)

type FriendCmd struct {
	Add  FriendAddCmd  `cmd:"" help:"Add a friend by email."`
	List FriendListCmd `cmd:"" help:"List friends."`
}

type FriendAddCmd struct {
	Email string `arg:"" help:"Friend's email."`
}

func (c *FriendAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	friend, err := ctx.Store.GetUserByEmail(bg, c.Email)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Email, err)
	}
	res, err := ctx.Progress.AddFriend(bg, me.ID, friend.ID, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("You and %s are now friends (%d total)\n", friend.DisplayName, res.Stats.FriendCount)
	return nil
}

type FriendListCmd struct{}

func (c *FriendListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	friends, err := ctx.Store.ListFriends(bg, me.ID)
	if err != nil {
		return err
	}
	if len(friends) == 0 {
		ctx.Println("No friends yet.")
		return nil
	}
	for _, f := range friends {
		u, err := ctx.Store.GetUser(bg, f.FriendID)
		if err != nil {
			return err
		}
		ctx.Printf("%s  %s\n", u.DisplayName, cli.MutedStyle.Render(u.Email))
	}
	return nil
}

type ChallengeCmd struct {
	Add  ChallengeAddCmd  `cmd:"" help:"Create a challenge (admin only)."`
	List ChallengeListCmd `cmd:"" help:"List challenges."`
	Join ChallengeJoinCmd `cmd:"" help:"Join a challenge."`
}

type ChallengeAddCmd struct {
	Name        string `arg:"" help:"Challenge name."`
	Start       string `help:"First day (YYYY-MM-DD)." required:""`
	End         string `help:"Last day (YYYY-MM-DD)." required:""`
	Description string `help:"Optional description."`
}

func (c *ChallengeAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.RequireAdmin(bg); err != nil {
		return err
	}
	ch, err := ctx.Progress.CreateChallenge(bg, progress.ChallengeInput{
		Name:        c.Name,
		Description: c.Description,
		StartsOn:    c.Start,
		EndsOn:      c.End,
	}, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("Created challenge %s (%s)\n", ch.Name, ch.ID)
	return nil
}

type ChallengeListCmd struct{}

func (c *ChallengeListCmd) Run(ctx *cli.Context) error {
	challenges, err := ctx.Store.ListChallenges(context.Background())
	if err != nil {
		return err
	}
	if len(challenges) == 0 {
		ctx.Println("No challenges found.")
		return nil
	}
	for _, ch := range challenges {
		ctx.Printf("%s  %s → %s  %s\n", ch.Name, ch.StartsOn, ch.EndsOn, cli.MutedStyle.Render(ch.ID))
	}
	return nil
}

type ChallengeJoinCmd struct {
	Challenge string `arg:"" help:"Challenge id or name."`
}

func (c *ChallengeJoinCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	me, err := ctx.CurrentUser(bg)
	if err != nil {
		return err
	}
	ch, err := ctx.Progress.FindChallenge(bg, c.Challenge)
	if err != nil {
		return err
	}
	res, err := ctx.Progress.JoinChallenge(bg, me.ID, ch.ID, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Printf("Joined %s (%d challenges)\n", ch.Name, res.Stats.ChallengesJoined)
	return nil
}
