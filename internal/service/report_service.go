package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.ReviewReport) error
	FindByID(ctx context.Context, id string) (*models.ReviewReport, error)
	HasOpenReport(ctx context.Context, reviewID, userID string) (bool, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.ReviewReport, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) (bool, error)
}

type reportReviewModerator interface {
	FlagNeedsEdit(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error)
	Remove(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error)
}

type reportNotifier interface {
	NotifyReportActioned(userID string)
}

// FileReportRequest is the payload for reporting a review.
type FileReportRequest struct {
	Reason  string  `json:"reason" validate:"required,min=3,max=120"`
	Details *string `json:"details,omitempty" validate:"omitempty,max=2000"`
}

// ActionReportRequest carries the admin's disposition of a report.
type ActionReportRequest struct {
	ActionType models.ReportAction `json:"action_type" validate:"required"`
}

// ReportList is a page of reports with pagination metadata.
type ReportList struct {
	Reports    []models.ReviewReport `json:"reports"`
	Pagination models.Pagination     `json:"pagination"`
}

type reportReviewLookup interface {
	FindByID(ctx context.Context, id string) (*models.Review, error)
}

// ReportService manages the report queue. Acting on a report drives the
// review through the moderation service, so stats and author
// notifications come along for free.
type ReportService struct {
	repo      reportRepository
	reviews   reportReviewLookup
	moderator reportReviewModerator
	notifier  reportNotifier
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, reviews reportReviewLookup, moderator reportReviewModerator, notifier reportNotifier, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{
		repo:      repo,
		reviews:   reviews,
		moderator: moderator,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// File opens a report on an APPROVED review. A user may hold at most
// one OPEN report per review; a second attempt is a conflict.
func (s *ReportService) File(ctx context.Context, reviewID, userID string, req FileReportRequest) (*models.ReviewReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

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

	open, err := s.repo.HasOpenReport(ctx, reviewID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing reports")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you already have an open report on this review")
	}

	report := &models.ReviewReport{
		ReviewID: reviewID,
		UserID:   userID,
		Reason:   strings.TrimSpace(req.Reason),
		Details:  req.Details,
		Status:   models.ReportStatusOpen,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	return report, nil
}

// List returns reports for the admin queue.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) (*ReportList, error) {
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	if reports == nil {
		reports = []models.ReviewReport{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return &ReportList{
		Reports:    reports,
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}, nil
}

// Action resolves an OPEN report. FLAG_NEEDS_EDIT and REMOVE act on the
// reported review and resolve the report; DISMISS closes it without
// touching the review. Deciding an already-decided report is a conflict.
func (s *ReportService) Action(ctx context.Context, reportID string, req ActionReportRequest, actor *models.JWTClaims, meta models.RequestMeta) (*models.ReviewReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report action payload")
	}

	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if report.Status != models.ReportStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report has already been decided")
	}

	var (
		target models.ReportStatus
		action string
	)
	switch req.ActionType {
	case models.ReportActionFlagNeedsEdit:
		if _, err := s.moderator.FlagNeedsEdit(ctx, report.ReviewID, actor, meta); err != nil {
			return nil, err
		}
		target = models.ReportStatusResolved
		action = models.AuditActionReportAction
	case models.ReportActionRemove:
		if _, err := s.moderator.Remove(ctx, report.ReviewID, actor, meta); err != nil {
			return nil, err
		}
		target = models.ReportStatusResolved
		action = models.AuditActionReportAction
	case models.ReportActionDismiss:
		target = models.ReportStatusDismissed
		action = models.AuditActionReportDismiss
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be FLAG_NEEDS_EDIT, REMOVE or DISMISS")
	}

	decided, err := s.repo.UpdateStatus(ctx, reportID, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}
	if !decided {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report has already been decided")
	}

	report.Status = target

	s.writeAudit(ctx, actor, action, report, req.ActionType, meta)
	if target == models.ReportStatusResolved {
		s.notifier.NotifyReportActioned(report.UserID)
	}

	return report, nil
}

func (s *ReportService) writeAudit(ctx context.Context, actor *models.JWTClaims, action string, report *models.ReviewReport, disposition models.ReportAction, meta models.RequestMeta) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "report",
		ResourceID: &report.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if raw, err := json.Marshal(map[string]interface{}{"action": disposition, "review_id": report.ReviewID}); err == nil {
		entry.NewValues = raw
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record report audit log", zap.Error(err))
	}
}
