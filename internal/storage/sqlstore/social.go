package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/models"
)

func (s *Store) AddFriendship(ctx context.Context, f models.Friendship) error {
	_, err := s.exec(ctx, `INSERT INTO friendships (user_id, friend_id, created_at) VALUES (?, ?, ?)`,
		f.UserID, f.FriendID, formatTime(f.CreatedAt))
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s and %s", apperrors.ErrAlreadyFriends, f.UserID, f.FriendID)
		}
		return apperrors.Store("add friendship", err)
	}
	return nil
}

func (s *Store) ListFriends(ctx context.Context, userID string) ([]models.Friendship, error) {
	rows, err := s.query(ctx, `
		SELECT user_id, friend_id, created_at FROM friendships
		WHERE user_id = ? ORDER BY created_at, friend_id`, userID)
	if err != nil {
		return nil, apperrors.Store("list friends", err)
	}
	defer rows.Close()

	var friends []models.Friendship
	for rows.Next() {
		var f models.Friendship
		var createdAt string
		if err := rows.Scan(&f.UserID, &f.FriendID, &createdAt); err != nil {
			return nil, apperrors.Store("list friends", err)
		}
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for friendship: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list friends", err)
	}
	return friends, nil
}

const challengeColumns = `id, name, description, starts_on, ends_on, created_at`

func scanChallenge(row scanner) (models.Challenge, error) {
	var c models.Challenge
	var createdAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.StartsOn, &c.EndsOn, &createdAt); err != nil {
		return models.Challenge{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Challenge{}, fmt.Errorf("failed to parse created_at for challenge %s: %w", c.ID, err)
	}
	return c, nil
}

func (s *Store) CreateChallenge(ctx context.Context, c models.Challenge) error {
	_, err := s.exec(ctx, `INSERT INTO challenges (`+challengeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.StartsOn, c.EndsOn, formatTime(c.CreatedAt))
	if err != nil {
		return apperrors.Store("create challenge", err)
	}
	return nil
}

func (s *Store) GetChallenge(ctx context.Context, id string) (models.Challenge, error) {
	c, err := scanChallenge(s.queryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Challenge{}, fmt.Errorf("%w: %s", apperrors.ErrChallengeNotFound, id)
	}
	if err != nil {
		return models.Challenge{}, apperrors.Store("get challenge", err)
	}
	return c, nil
}

func (s *Store) ListChallenges(ctx context.Context) ([]models.Challenge, error) {
	rows, err := s.query(ctx, `SELECT `+challengeColumns+` FROM challenges ORDER BY starts_on, name`)
	if err != nil {
		return nil, apperrors.Store("list challenges", err)
	}
	defer rows.Close()

	var challenges []models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, apperrors.Store("list challenges", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list challenges", err)
	}
	return challenges, nil
}

func (s *Store) JoinChallenge(ctx context.Context, p models.ChallengeParticipant) error {
	_, err := s.exec(ctx, `INSERT INTO challenge_participants (challenge_id, user_id, joined_at) VALUES (?, ?, ?)`,
		p.ChallengeID, p.UserID, formatTime(p.JoinedAt))
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyJoined, p.ChallengeID)
		}
		return apperrors.Store("join challenge", err)
	}
	return nil
}
