package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type voteRepository interface {
	Upsert(ctx context.Context, vote *models.ReviewVote) error
	Delete(ctx context.Context, reviewID, userID string) error
	CountUp(ctx context.Context, reviewID string) (int, error)
}

type voteReviewRepository interface {
	FindByID(ctx context.Context, id string) (*models.Review, error)
	SetHelpfulScore(ctx context.Context, id string, score int) error
}

// CastVoteRequest is the payload for voting on a review.
type CastVoteRequest struct {
	Value models.VoteValue `json:"value" validate:"required"`
}

// VoteResult reports the review's helpful score after a vote operation.
type VoteResult struct {
	ReviewID     string `json:"review_id"`
	HelpfulScore int    `json:"helpful_score"`
}

// VoteService manages helpfulness votes. Only APPROVED reviews can be
// voted on, and the cached helpful score is recounted from the vote
// rows after every mutation.
type VoteService struct {
	votes     voteRepository
	reviews   voteReviewRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVoteService constructs a VoteService.
func NewVoteService(votes voteRepository, reviews voteReviewRepository, validate *validator.Validate, logger *zap.Logger) *VoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VoteService{votes: votes, reviews: reviews, validator: validate, logger: logger}
}

// Cast records or changes the caller's vote on a review. Authors may
// vote on their own reviews; the one-vote-per-user upsert caps their
// influence at a single vote like anyone else's.
func (s *VoteService) Cast(ctx context.Context, reviewID, userID string, req CastVoteRequest) (*VoteResult, error) {
	if err := s.validator.Struct(req); err != nil || !req.Value.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "vote value must be UP or DOWN")
	}

	if _, err := s.loadVotable(ctx, reviewID); err != nil {
		return nil, err
	}

	vote := &models.ReviewVote{ReviewID: reviewID, UserID: userID, Value: req.Value}
	if err := s.votes.Upsert(ctx, vote); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
	}

	return s.recount(ctx, reviewID)
}

// Retract removes the caller's vote. Retracting when no vote exists is
// a no-op that still returns the current score.
func (s *VoteService) Retract(ctx context.Context, reviewID, userID string) (*VoteResult, error) {
	if _, err := s.loadVotable(ctx, reviewID); err != nil {
		return nil, err
	}

	if err := s.votes.Delete(ctx, reviewID, userID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retract vote")
	}

	return s.recount(ctx, reviewID)
}

func (s *VoteService) loadVotable(ctx context.Context, reviewID string) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if review.Status != models.ReviewStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
	}
	return review, nil
}

// recount rebuilds helpful_score from the vote rows. The count is the
// source of truth; the cached column only exists for cheap sorting.
func (s *VoteService) recount(ctx context.Context, reviewID string) (*VoteResult, error) {
	score, err := s.votes.CountUp(ctx, reviewID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count votes")
	}
	if err := s.reviews.SetHelpfulScore(ctx, reviewID, score); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store helpful score")
	}
	return &VoteResult{ReviewID: reviewID, HelpfulScore: score}, nil
}
