package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/internlens/internlens-api/internal/models"
)

// VoteRepository provides database access for review votes.
type VoteRepository struct {
	db *sqlx.DB
}

// NewVoteRepository creates a new instance of VoteRepository.
func NewVoteRepository(db *sqlx.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Upsert casts or changes a vote. The unique constraint on
// (review_id, user_id) makes concurrent casts collapse into one row.
func (r *VoteRepository) Upsert(ctx context.Context, vote *models.ReviewVote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = now
	}
	vote.UpdatedAt = now

	const query = `INSERT INTO review_votes (id, review_id, user_id, value, created_at, updated_at) VALUES (:id, :review_id, :user_id, :value, :created_at, :updated_at) ON CONFLICT (review_id, user_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, vote); err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// Delete retracts a user's vote on a review. Retracting a vote that
// does not exist is a no-op.
func (r *VoteRepository) Delete(ctx context.Context, reviewID, userID string) error {
	const query = `DELETE FROM review_votes WHERE review_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, reviewID, userID); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

// CountUp returns the number of UP votes on a review.
func (r *VoteRepository) CountUp(ctx context.Context, reviewID string) (int, error) {
	const query = `SELECT COUNT(*) FROM review_votes WHERE review_id = $1 AND value = 'UP'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, reviewID); err != nil {
		return 0, fmt.Errorf("count up votes: %w", err)
	}
	return count, nil
}

// FindByReviewAndUser returns the caller's vote on a review, if any.
func (r *VoteRepository) FindByReviewAndUser(ctx context.Context, reviewID, userID string) (*models.ReviewVote, error) {
	const query = `SELECT id, review_id, user_id, value, created_at, updated_at FROM review_votes WHERE review_id = $1 AND user_id = $2 LIMIT 1`
	var vote models.ReviewVote
	if err := r.db.GetContext(ctx, &vote, query, reviewID, userID); err != nil {
		return nil, err
	}
	return &vote, nil
}
