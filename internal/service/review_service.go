package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type reviewRepository interface {
	FindByID(ctx context.Context, id string) (*models.Review, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
	Create(ctx context.Context, review *models.Review) error
	UpdateContent(ctx context.Context, review *models.Review) error
	UpdateStatus(ctx context.Context, id string, status models.ReviewStatus, rejectionReason *string, publishedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

type reviewCompanyLookup interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
}

type reviewNotifier interface {
	NotifyReviewApproved(userID, companyName, reviewID string)
	NotifyReviewRejected(userID, companyName, reviewID, reason string)
	NotifyReviewNeedsEdit(userID, companyName, reviewID string)
	NotifyReviewRemoved(userID, companyName string)
}

type reviewStatsRecomputer interface {
	Recompute(ctx context.Context, companyID string) (*models.CompanyStats, error)
}

// SubmitReviewRequest is the payload for creating or editing a review.
type SubmitReviewRequest struct {
	CompanyID           string   `json:"company_id" validate:"required,uuid4"`
	RoleTitle           string   `json:"role_title" validate:"required,min=2,max=120"`
	Level               *string  `json:"level,omitempty"`
	Location            *string  `json:"location,omitempty"`
	Season              *string  `json:"season,omitempty"`
	Year                *int     `json:"year,omitempty" validate:"omitempty,min=2000,max=2100"`
	StagesCount         *int     `json:"stages_count,omitempty" validate:"omitempty,min=0,max=20"`
	InterviewType       *string  `json:"interview_type,omitempty"`
	Difficulty          *int     `json:"difficulty,omitempty" validate:"omitempty,min=1,max=5"`
	Outcome             *string  `json:"outcome,omitempty"`
	Currency            *string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	PayHourly           *float64 `json:"pay_hourly,omitempty" validate:"omitempty,min=0"`
	PayMonthly          *float64 `json:"pay_monthly,omitempty" validate:"omitempty,min=0"`
	PayYearly           *float64 `json:"pay_yearly,omitempty" validate:"omitempty,min=0"`
	ApplicationProcess  *string  `json:"application_process,omitempty"`
	InterviewExperience *string  `json:"interview_experience,omitempty"`
	Culture             *string  `json:"culture,omitempty"`
	Tips                *string  `json:"tips,omitempty"`
	Overall             *string  `json:"overall,omitempty"`
}

// RejectReviewRequest carries the mandatory rejection reason.
type RejectReviewRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// ReviewList is a page of reviews with pagination metadata.
type ReviewList struct {
	Reviews    []models.Review   `json:"reviews"`
	Pagination models.Pagination `json:"pagination"`
}

// ReviewService owns the review moderation lifecycle.
type ReviewService struct {
	repo      reviewRepository
	companies reviewCompanyLookup
	stats     reviewStatsRecomputer
	notifier  reviewNotifier
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(repo reviewRepository, companies reviewCompanyLookup, stats reviewStatsRecomputer, notifier reviewNotifier, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{
		repo:      repo,
		companies: companies,
		stats:     stats,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Submit files a new review. It always enters the queue as PENDING.
func (s *ReviewService) Submit(ctx context.Context, userID string, req SubmitReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	if _, err := s.companies.FindByID(ctx, req.CompanyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}

	review := &models.Review{
		CompanyID: req.CompanyID,
		UserID:    userID,
		Status:    models.ReviewStatusPending,
	}
	applyReviewContent(review, req)

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	return review, nil
}

// Get returns a review, enforcing visibility: anyone may read APPROVED,
// the owner may read their own in any state, admins may read anything.
func (s *ReviewService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.Review, error) {
	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}

	if review.Status == models.ReviewStatusApproved {
		return review, nil
	}
	if viewer != nil && (viewer.Role == models.RoleAdmin || viewer.UserID == review.UserID) {
		return review, nil
	}
	// Non-approved reviews are invisible, not forbidden: leaking their
	// existence would tell strangers a moderation queue entry exists.
	return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
}

// List returns reviews subject to the viewer's visibility. Anonymous
// and regular callers only ever see APPROVED rows unless they filter by
// their own user id; admins may filter by any status.
func (s *ReviewService) List(ctx context.Context, filter models.ReviewFilter, viewer *models.JWTClaims) (*ReviewList, error) {
	isAdmin := viewer != nil && viewer.Role == models.RoleAdmin
	isSelf := viewer != nil && filter.UserID != "" && filter.UserID == viewer.UserID

	if !isAdmin && !isSelf {
		approved := models.ReviewStatusApproved
		filter.Status = &approved
	}

	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return &ReviewList{
		Reviews:    reviews,
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}, nil
}

// Update edits a review. Owners may edit while it is PENDING or
// NEEDS_EDIT, and the edit resubmits it as PENDING. Admins may edit a
// review in any state; their edits leave the status untouched.
func (s *ReviewService) Update(ctx context.Context, id string, actor *models.JWTClaims, req SubmitReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}

	isAdmin := actor != nil && actor.Role == models.RoleAdmin
	isOwner := actor != nil && actor.UserID == review.UserID
	if !isOwner && !isAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "review belongs to another user")
	}
	if !isAdmin && !review.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "review can no longer be edited")
	}
	if req.CompanyID != review.CompanyID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "company of a review cannot be changed")
	}

	applyReviewContent(review, req)
	if !isAdmin {
		review.Status = models.ReviewStatusPending
	}

	if err := s.repo.UpdateContent(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review")
	}

	return review, nil
}

// Approve publishes a review. The first approval stamps published_at;
// re-approvals keep the original date.
func (s *ReviewService) Approve(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error) {
	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.Status == models.ReviewStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "review is already approved")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, models.ReviewStatusApproved, nil, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve review")
	}

	before := review.Status
	review.Status = models.ReviewStatusApproved
	review.RejectionReason = nil
	if review.PublishedAt == nil {
		review.PublishedAt = &now
	}

	if _, err := s.stats.Recompute(ctx, review.CompanyID); err != nil {
		s.logger.Warn("failed to recompute stats after approval", zap.String("company_id", review.CompanyID), zap.Error(err))
	}

	s.writeAudit(ctx, actor, models.AuditActionReviewApprove, review.ID, before, review.Status, meta)
	s.notifier.NotifyReviewApproved(review.UserID, s.companyName(ctx, review.CompanyID), review.ID)

	return review, nil
}

// Reject declines a review with a mandatory reason. Rejecting a
// previously APPROVED review pulls it from the public site, so stats
// are recomputed.
func (s *ReviewService) Reject(ctx context.Context, id string, req RejectReviewRequest, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}

	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.Status == models.ReviewStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrConflict, "review is already rejected")
	}

	reason := strings.TrimSpace(req.Reason)
	if err := s.repo.UpdateStatus(ctx, id, models.ReviewStatusRejected, &reason, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject review")
	}

	before := review.Status
	review.Status = models.ReviewStatusRejected
	review.RejectionReason = &reason

	if before == models.ReviewStatusApproved {
		if _, err := s.stats.Recompute(ctx, review.CompanyID); err != nil {
			s.logger.Warn("failed to recompute stats after rejection", zap.String("company_id", review.CompanyID), zap.Error(err))
		}
	}

	s.writeAudit(ctx, actor, models.AuditActionReviewReject, review.ID, before, review.Status, meta)
	s.notifier.NotifyReviewRejected(review.UserID, s.companyName(ctx, review.CompanyID), review.ID, reason)

	return review, nil
}

// FlagNeedsEdit sends a review back to its author for changes. Reached
// from report handling; pulling an APPROVED review triggers a recompute.
func (s *ReviewService) FlagNeedsEdit(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error) {
	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.Status == models.ReviewStatusNeedsEdit {
		return review, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, models.ReviewStatusNeedsEdit, nil, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag review")
	}

	before := review.Status
	review.Status = models.ReviewStatusNeedsEdit

	if before == models.ReviewStatusApproved {
		if _, err := s.stats.Recompute(ctx, review.CompanyID); err != nil {
			s.logger.Warn("failed to recompute stats after flag", zap.String("company_id", review.CompanyID), zap.Error(err))
		}
	}

	s.writeAudit(ctx, actor, models.AuditActionReportAction, review.ID, before, review.Status, meta)
	s.notifier.NotifyReviewNeedsEdit(review.UserID, s.companyName(ctx, review.CompanyID), review.ID)

	return review, nil
}

// Remove takes a review off the site, keeping the row for the audit
// trail. When the owner removes their own review no notification is
// sent; they initiated it.
func (s *ReviewService) Remove(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error) {
	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := actor != nil && actor.UserID == review.UserID
	isAdmin := actor != nil && actor.Role == models.RoleAdmin
	if !isOwner && !isAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "review belongs to another user")
	}
	if review.Status == models.ReviewStatusRemoved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "review is already removed")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.ReviewStatusRemoved, nil, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove review")
	}

	before := review.Status
	review.Status = models.ReviewStatusRemoved

	if before == models.ReviewStatusApproved {
		if _, err := s.stats.Recompute(ctx, review.CompanyID); err != nil {
			s.logger.Warn("failed to recompute stats after removal", zap.String("company_id", review.CompanyID), zap.Error(err))
		}
	}

	s.writeAudit(ctx, actor, models.AuditActionReviewDelete, review.ID, before, review.Status, meta)
	if !isOwner {
		s.notifier.NotifyReviewRemoved(review.UserID, s.companyName(ctx, review.CompanyID))
	}

	return review, nil
}

// HardDelete erases a review row and its votes and reports. Admin only.
func (s *ReviewService) HardDelete(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) error {
	review, err := s.findReview(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}

	if review.Status == models.ReviewStatusApproved {
		if _, err := s.stats.Recompute(ctx, review.CompanyID); err != nil {
			s.logger.Warn("failed to recompute stats after delete", zap.String("company_id", review.CompanyID), zap.Error(err))
		}
	}

	s.writeAudit(ctx, actor, models.AuditActionReviewDelete, review.ID, review.Status, "DELETED", meta)
	return nil
}

func (s *ReviewService) findReview(ctx context.Context, id string) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return review, nil
}

func (s *ReviewService) companyName(ctx context.Context, companyID string) string {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		s.logger.Warn("failed to load company for notification", zap.String("company_id", companyID), zap.Error(err))
		return "the company"
	}
	return company.Name
}

func (s *ReviewService) writeAudit(ctx context.Context, actor *models.JWTClaims, action, reviewID string, before, after interface{}, meta models.RequestMeta) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "review",
		ResourceID: &reviewID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if raw, err := json.Marshal(map[string]interface{}{"status": before}); err == nil {
		entry.OldValues = raw
	}
	if raw, err := json.Marshal(map[string]interface{}{"status": after}); err == nil {
		entry.NewValues = raw
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record review audit log", zap.Error(err))
	}
}

func applyReviewContent(review *models.Review, req SubmitReviewRequest) {
	review.RoleTitle = strings.TrimSpace(req.RoleTitle)
	review.Level = req.Level
	review.Location = req.Location
	review.Season = req.Season
	review.Year = req.Year
	review.StagesCount = req.StagesCount
	review.InterviewType = req.InterviewType
	review.Difficulty = req.Difficulty
	review.Outcome = req.Outcome
	review.Currency = req.Currency
	review.PayHourly = req.PayHourly
	review.PayMonthly = req.PayMonthly
	review.PayYearly = req.PayYearly
	review.ApplicationProcess = req.ApplicationProcess
	review.InterviewExperience = req.InterviewExperience
	review.Culture = req.Culture
	review.Tips = req.Tips
	review.Overall = req.Overall
}
