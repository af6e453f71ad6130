package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/ropeline/internal/models"
)

var (
	acceptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	unlockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
)

// Console writes styled one-line messages to w
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) CompletionAccepted(_ context.Context, habit models.Habit, record models.CompletionRecord) error {
	_, err := fmt.Fprintln(c.w, acceptedStyle.Render("✓ "+acceptedText(habit, record)))
	return err
}

func (c *Console) CompletionRejected(_ context.Context, _ string, reason error) error {
	_, err := fmt.Fprintln(c.w, rejectedStyle.Render("✗ "+reason.Error()))
	return err
}

func (c *Console) AchievementsUnlocked(_ context.Context, _ string, unlocked []models.Achievement) error {
	if len(unlocked) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(c.w, unlockedStyle.Render("★ "+unlockedText(unlocked)))
	return err
}
