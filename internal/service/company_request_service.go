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

type companyRequestRepository interface {
	Create(ctx context.Context, req *models.CompanyRequest) error
	FindByID(ctx context.Context, id string) (*models.CompanyRequest, error)
	List(ctx context.Context, status *models.CompanyRequestStatus, page, pageSize int) ([]models.CompanyRequest, int, error)
	UpdateStatus(ctx context.Context, id string, status models.CompanyRequestStatus, companyID, rejectionReason *string) (bool, error)
}

type companyRequestCreator interface {
	Create(ctx context.Context, req CreateCompanyRequest, actorID string, meta models.RequestMeta) (*models.Company, error)
}

type companyRequestNotifier interface {
	NotifyCompanyRequestApproved(userID, companyName, companySlug string)
	NotifyCompanyRequestRejected(userID, companyName, reason string)
}

// SubmitCompanyRequest is the payload for asking that a company be
// added. ContactEmail lets anonymous requesters be reached.
type SubmitCompanyRequest struct {
	Name         string  `json:"name" validate:"required,min=2,max=120"`
	Website      *string `json:"website,omitempty" validate:"omitempty,url"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=1000"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
}

// DecideCompanyRequest is the admin payload for deciding a request.
// Reason is required when approve is false.
type DecideCompanyRequest struct {
	Approve bool                  `json:"approve"`
	Reason  *string               `json:"reason,omitempty" validate:"omitempty,min=3,max=500"`
	Company *CreateCompanyRequest `json:"company,omitempty"`
}

// CompanyRequestList is a page of requests with pagination metadata.
type CompanyRequestList struct {
	Requests   []models.CompanyRequest `json:"requests"`
	Pagination models.Pagination       `json:"pagination"`
}

// CompanyRequestService manages the company addition queue. Requests
// may come from signed-in users or anonymous visitors.
type CompanyRequestService struct {
	repo      companyRequestRepository
	companies companyRequestCreator
	notifier  companyRequestNotifier
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompanyRequestService constructs a CompanyRequestService.
func NewCompanyRequestService(repo companyRequestRepository, companies companyRequestCreator, notifier companyRequestNotifier, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *CompanyRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CompanyRequestService{
		repo:      repo,
		companies: companies,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Submit files a company request. userID is nil for anonymous callers.
func (s *CompanyRequestService) Submit(ctx context.Context, userID *string, req SubmitCompanyRequest) (*models.CompanyRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company request payload")
	}

	request := &models.CompanyRequest{
		UserID:        userID,
		RequestedName: strings.TrimSpace(req.Name),
		Website:       req.Website,
		Note:          req.Note,
		ContactEmail:  req.ContactEmail,
		Status:        models.CompanyRequestPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create company request")
	}

	return request, nil
}

// List returns requests for the admin queue.
func (s *CompanyRequestService) List(ctx context.Context, status *models.CompanyRequestStatus, page, pageSize int) (*CompanyRequestList, error) {
	requests, total, err := s.repo.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list company requests")
	}
	if requests == nil {
		requests = []models.CompanyRequest{}
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return &CompanyRequestList{
		Requests:   requests,
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}, nil
}

// Decide approves or rejects a PENDING request. Approval creates the
// company (using the admin's overrides when given, the requested name
// otherwise) and links it to the request.
func (s *CompanyRequestService) Decide(ctx context.Context, id string, req DecideCompanyRequest, actor *models.JWTClaims, meta models.RequestMeta) (*models.CompanyRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if !req.Approve && (req.Reason == nil || strings.TrimSpace(*req.Reason) == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required to reject a request")
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company request")
	}
	if request.Status != models.CompanyRequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "company request has already been decided")
	}

	if req.Approve {
		companyPayload := CreateCompanyRequest{Name: request.RequestedName, Website: request.Website}
		if req.Company != nil {
			companyPayload = *req.Company
		}

		actorID := ""
		if actor != nil {
			actorID = actor.UserID
		}
		company, err := s.companies.Create(ctx, companyPayload, actorID, meta)
		if err != nil {
			return nil, err
		}

		decided, err := s.repo.UpdateStatus(ctx, id, models.CompanyRequestApproved, &company.ID, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update company request")
		}
		if !decided {
			return nil, appErrors.Clone(appErrors.ErrConflict, "company request has already been decided")
		}

		request.Status = models.CompanyRequestApproved
		request.CompanyID = &company.ID

		s.writeAudit(ctx, actor, request, meta)
		if request.UserID != nil {
			s.notifier.NotifyCompanyRequestApproved(*request.UserID, company.Name, company.Slug)
		}
		return request, nil
	}

	reason := strings.TrimSpace(*req.Reason)
	decided, err := s.repo.UpdateStatus(ctx, id, models.CompanyRequestRejected, nil, &reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update company request")
	}
	if !decided {
		return nil, appErrors.Clone(appErrors.ErrConflict, "company request has already been decided")
	}

	request.Status = models.CompanyRequestRejected
	request.RejectionReason = &reason

	s.writeAudit(ctx, actor, request, meta)
	if request.UserID != nil {
		s.notifier.NotifyCompanyRequestRejected(*request.UserID, request.RequestedName, reason)
	}
	return request, nil
}

func (s *CompanyRequestService) writeAudit(ctx context.Context, actor *models.JWTClaims, request *models.CompanyRequest, meta models.RequestMeta) {
	entry := &models.AuditLog{
		Action:     models.AuditActionCompanyRequestDecide,
		Resource:   "company_request",
		ResourceID: &request.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if raw, err := json.Marshal(map[string]interface{}{"status": request.Status, "company_id": request.CompanyID}); err == nil {
		entry.NewValues = raw
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record company request audit log", zap.Error(err))
	}
}
