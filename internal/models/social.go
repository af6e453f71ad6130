package models

import "time"

// Friendship links two users; it is stored once per direction
type Friendship struct {
	UserID    string    `json:"user_id"`
	FriendID  string    `json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Challenge is a community event users can join
type Challenge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartsOn    string    `json:"starts_on"` // YYYY-MM-DD
	EndsOn      string    `json:"ends_on"`   // YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at"`
}

// ChallengeParticipant records a user joining a challenge
type ChallengeParticipant struct {
	ChallengeID string    `json:"challenge_id"`
	UserID      string    `json:"user_id"`
	JoinedAt    time.Time `json:"joined_at"`
}
