package models

import "time"

// VoteValue is the direction of a review vote.
type VoteValue string

const (
	VoteUp   VoteValue = "UP"
	VoteDown VoteValue = "DOWN"
)

// Valid reports whether the value is one of the accepted directions.
func (v VoteValue) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// ReviewVote records a single user's vote on a review. A unique
// constraint on (review_id, user_id) guarantees at most one live vote
// per pair; writes go through an upsert.
type ReviewVote struct {
	ID        string    `db:"id" json:"id"`
	ReviewID  string    `db:"review_id" json:"review_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Value     VoteValue `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
