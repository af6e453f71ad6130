package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/ropeline/internal/constants"
	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/utils"
)

type ChallengeInput struct {
	Name        string
	Description string
	StartsOn    string // YYYY-MM-DD
	EndsOn      string // YYYY-MM-DD
}

// CreateChallenge validates in and stores a new challenge
func (s *Service) CreateChallenge(ctx context.Context, in ChallengeInput, now time.Time) (models.Challenge, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Challenge{}, fmt.Errorf("%w: challenge name is required", apperrors.ErrInvalidInput)
	}
	starts, err := utils.ParseDay(in.StartsOn)
	if err != nil {
		return models.Challenge{}, fmt.Errorf("%w: start date: %v", apperrors.ErrInvalidInput, err)
	}
	ends, err := utils.ParseDay(in.EndsOn)
	if err != nil {
		return models.Challenge{}, fmt.Errorf("%w: end date: %v", apperrors.ErrInvalidInput, err)
	}
	if ends.Before(starts) {
		return models.Challenge{}, fmt.Errorf("%w: end date is before start date", apperrors.ErrInvalidInput)
	}

	challenge := models.Challenge{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		StartsOn:    starts.Format(constants.DateFormat),
		EndsOn:      ends.Format(constants.DateFormat),
		CreatedAt:   now,
	}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.CreateChallenge(ctx, challenge)
	})
	if err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

// FindChallenge returns the challenge whose id or case-insensitive name is ref
func (s *Service) FindChallenge(ctx context.Context, ref string) (models.Challenge, error) {
	var found models.Challenge
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if ch, err := tx.GetChallenge(ctx, ref); err == nil {
			found = ch
			return nil
		}
		challenges, err := tx.ListChallenges(ctx)
		if err != nil {
			return err
		}
		for _, ch := range challenges {
			if strings.EqualFold(ch.Name, strings.TrimSpace(ref)) {
				found = ch
				return nil
			}
		}
		return fmt.Errorf("%w: %q", apperrors.ErrChallengeNotFound, ref)
	})
	return found, err
}
