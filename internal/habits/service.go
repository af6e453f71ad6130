// Package habits manages the lifecycle of a user's habits. Every operation
// checks that the acting user owns the habit.
package habits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/progress"
	"github.com/julianstephens/ropeline/internal/storage"
)

type Service struct {
	store storage.Transactor
}

func New(store storage.Transactor) *Service {
	return &Service{store: store}
}

// CreateInput describes a new habit
type CreateInput struct {
	Name        string
	Description string
	Category    models.HabitCategory
}

// UpdateInput holds optional edits; nil fields are left unchanged
type UpdateInput struct {
	Name        *string
	Description *string
	Category    *models.HabitCategory
}

// transitions lists the allowed status changes
var transitions = map[models.HabitStatus][]models.HabitStatus{
	models.HabitActive:   {models.HabitPaused, models.HabitArchived, models.HabitDeleted},
	models.HabitPaused:   {models.HabitActive, models.HabitArchived, models.HabitDeleted},
	models.HabitArchived: {models.HabitActive, models.HabitDeleted},
	models.HabitDeleted:  {models.HabitActive},
}

// CanTransition reports whether a habit may move from one status to another
func CanTransition(from, to models.HabitStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: habit name cannot be empty", apperrors.ErrInvalidInput)
	}
	if len(name) > 100 {
		return "", fmt.Errorf("%w: habit name cannot exceed 100 characters", apperrors.ErrInvalidInput)
	}
	return name, nil
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput, now time.Time) (models.Habit, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return models.Habit{}, err
	}
	category := in.Category
	if category == "" {
		category = models.CategoryCustom
	}
	if !category.Valid() {
		return models.Habit{}, fmt.Errorf("%w: unknown category %q", apperrors.ErrInvalidInput, category)
	}

	habit := models.Habit{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Status:      models.HabitActive,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		return tx.CreateHabit(ctx, habit)
	})
	if err != nil {
		return models.Habit{}, err
	}
	return habit, nil
}

// Get returns the habit if userID owns it
func (s *Service) Get(ctx context.Context, userID, habitID string) (models.Habit, error) {
	var habit models.Habit
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		habit, err = owned(ctx, tx, userID, habitID)
		return err
	})
	return habit, err
}

func (s *Service) List(ctx context.Context, userID string, filter storage.HabitFilter) ([]models.Habit, error) {
	var habits []models.Habit
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		habits, err = tx.ListHabits(ctx, userID, filter)
		return err
	})
	return habits, err
}

func (s *Service) Update(ctx context.Context, userID, habitID string, in UpdateInput, now time.Time) (models.Habit, error) {
	return s.modify(ctx, userID, habitID, now, func(h *models.Habit) error {
		if h.Status == models.HabitDeleted {
			return fmt.Errorf("%w: %s", apperrors.ErrHabitNotFound, h.ID)
		}
		if in.Name != nil {
			name, err := validateName(*in.Name)
			if err != nil {
				return err
			}
			h.Name = name
		}
		if in.Description != nil {
			h.Description = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			if !in.Category.Valid() {
				return fmt.Errorf("%w: unknown category %q", apperrors.ErrInvalidInput, *in.Category)
			}
			h.Category = *in.Category
		}
		return nil
	})
}

func (s *Service) Pause(ctx context.Context, userID, habitID string, now time.Time) (models.Habit, error) {
	return s.transition(ctx, userID, habitID, models.HabitPaused, now)
}

// Resume reactivates a paused or archived habit
func (s *Service) Resume(ctx context.Context, userID, habitID string, now time.Time) (models.Habit, error) {
	return s.modify(ctx, userID, habitID, now, func(h *models.Habit) error {
		if h.Status != models.HabitPaused && h.Status != models.HabitArchived {
			return fmt.Errorf("%w: cannot resume a %s habit", apperrors.ErrInvalidTransition, h.Status)
		}
		h.Status = models.HabitActive
		return nil
	})
}

func (s *Service) Archive(ctx context.Context, userID, habitID string, now time.Time) (models.Habit, error) {
	return s.transition(ctx, userID, habitID, models.HabitArchived, now)
}

// Delete soft-deletes the habit. History and stats are kept.
func (s *Service) Delete(ctx context.Context, userID, habitID string, now time.Time) (models.Habit, error) {
	return s.transition(ctx, userID, habitID, models.HabitDeleted, now)
}

// Restore brings a deleted habit back as active
func (s *Service) Restore(ctx context.Context, userID, habitID string, now time.Time) (models.Habit, error) {
	return s.modify(ctx, userID, habitID, now, func(h *models.Habit) error {
		if h.Status != models.HabitDeleted {
			return fmt.Errorf("%w: habit is %s, not deleted", apperrors.ErrInvalidTransition, h.Status)
		}
		h.Status = models.HabitActive
		return nil
	})
}

// History returns the newest completion records first
func (s *Service) History(ctx context.Context, userID, habitID string, limit int) ([]models.CompletionRecord, error) {
	var records []models.CompletionRecord
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := owned(ctx, tx, userID, habitID); err != nil {
			return err
		}
		var err error
		records, err = tx.ListCompletions(ctx, habitID, limit)
		return err
	})
	return records, err
}

func (s *Service) transition(ctx context.Context, userID, habitID string, to models.HabitStatus, now time.Time) (models.Habit, error) {
	return s.modify(ctx, userID, habitID, now, func(h *models.Habit) error {
		if !CanTransition(h.Status, to) {
			return fmt.Errorf("%w: %s to %s", apperrors.ErrInvalidTransition, h.Status, to)
		}
		h.Status = to
		return nil
	})
}

func (s *Service) modify(ctx context.Context, userID, habitID string, now time.Time, apply func(*models.Habit) error) (models.Habit, error) {
	var habit models.Habit
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		h, err := owned(ctx, tx, userID, habitID)
		if err != nil {
			return err
		}
		before := h.Status
		if err := apply(&h); err != nil {
			return err
		}
		h.UpdatedAt = now
		if err := tx.UpdateHabit(ctx, h); err != nil {
			return err
		}
		// deleting or restoring a habit can change the user's best streak
		if h.Status != before {
			if _, err := progress.RefreshStats(ctx, tx, userID, models.StatsDelta{}, now); err != nil {
				return err
			}
		}
		habit, err = tx.GetHabit(ctx, habitID)
		return err
	})
	if err != nil {
		return models.Habit{}, err
	}
	return habit, nil
}

func owned(ctx context.Context, tx storage.Tx, userID, habitID string) (models.Habit, error) {
	h, err := tx.GetHabit(ctx, habitID)
	if err != nil {
		return models.Habit{}, err
	}
	if h.UserID != userID {
		return models.Habit{}, fmt.Errorf("%w: habit %s", apperrors.ErrUnauthorized, habitID)
	}
	return h, nil
}
