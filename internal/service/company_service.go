package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type companyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
	FindBySlug(ctx context.Context, slug string) (*models.Company, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
}

type companyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateCompanyRequest is the admin payload for adding a company.
type CreateCompanyRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Website     *string `json:"website,omitempty" validate:"omitempty,url"`
	LogoURI     *string `json:"logo_uri,omitempty" validate:"omitempty,uri"`
	Industry    *string `json:"industry,omitempty"`
	HQLocation  *string `json:"hq_location,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateCompanyRequest is the admin payload for editing a company
// profile. Nil fields are left untouched.
type UpdateCompanyRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Website     *string `json:"website,omitempty" validate:"omitempty,url"`
	LogoURI     *string `json:"logo_uri,omitempty" validate:"omitempty,uri"`
	Industry    *string `json:"industry,omitempty"`
	HQLocation  *string `json:"hq_location,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CompanyList is a page of companies with pagination metadata. It is
// also the shape stored in the listing cache.
type CompanyList struct {
	Companies  []models.Company  `json:"companies"`
	Pagination models.Pagination `json:"pagination"`
}

// CompanyService manages the employer catalogue.
type CompanyService struct {
	repo      companyRepository
	cache     companyCache
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewCompanyService constructs a CompanyService.
func NewCompanyService(repo companyRepository, cache companyCache, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CompanyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CompanyService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns companies matching the filter, serving repeated listing
// queries from the cache.
func (s *CompanyService) List(ctx context.Context, filter models.CompanyFilter) (*CompanyList, error) {
	key := companyListCacheKey(filter)

	if s.cache != nil {
		var cached CompanyList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("company cache read failed", zap.Error(err))
		}
	}

	companies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list companies")
	}
	if companies == nil {
		companies = []models.Company{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 12
	}

	result := &CompanyList{
		Companies:  companies,
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("company cache write failed", zap.Error(err))
		}
	}

	return result, nil
}

// GetBySlug returns one company by its slug.
func (s *CompanyService) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	company, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}
	return company, nil
}

// GetByID returns one company by its identifier.
func (s *CompanyService) GetByID(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}
	return company, nil
}

// Create adds a company with a slug derived from its name.
func (s *CompanyService) Create(ctx context.Context, req CreateCompanyRequest, actorID string, meta models.RequestMeta) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company payload")
	}

	slug, err := s.uniqueSlug(ctx, req.Name, "")
	if err != nil {
		return nil, err
	}

	company := &models.Company{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Website:     req.Website,
		LogoURI:     req.LogoURI,
		Industry:    req.Industry,
		HQLocation:  req.HQLocation,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create company")
	}

	s.invalidate(ctx)
	s.writeAudit(ctx, actorID, models.AuditActionCompanyCreate, company.ID, nil, company, meta)

	return company, nil
}

// Update edits a company profile. A name change regenerates the slug.
func (s *CompanyService) Update(ctx context.Context, id string, req UpdateCompanyRequest, actorID string, meta models.RequestMeta) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company payload")
	}

	company, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *company

	if req.Name != nil && strings.TrimSpace(*req.Name) != company.Name {
		name := strings.TrimSpace(*req.Name)
		slug, err := s.uniqueSlug(ctx, name, company.ID)
		if err != nil {
			return nil, err
		}
		company.Name = name
		company.Slug = slug
	}
	if req.Website != nil {
		company.Website = req.Website
	}
	if req.LogoURI != nil {
		company.LogoURI = req.LogoURI
	}
	if req.Industry != nil {
		company.Industry = req.Industry
	}
	if req.HQLocation != nil {
		company.HQLocation = req.HQLocation
	}
	if req.Description != nil {
		company.Description = req.Description
	}

	if err := s.repo.Update(ctx, company); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update company")
	}

	s.invalidate(ctx)
	s.writeAudit(ctx, actorID, models.AuditActionCompanyUpdate, company.ID, &before, company, meta)

	return company, nil
}

func (s *CompanyService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "companies:*"); err != nil {
		s.logger.Warn("failed to invalidate company cache", zap.Error(err))
	}
}

func (s *CompanyService) writeAudit(ctx context.Context, actorID, action, resourceID string, oldValue, newValue interface{}, meta models.RequestMeta) {
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "company",
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if oldValue != nil {
		if raw, err := json.Marshal(oldValue); err == nil {
			entry.OldValues = raw
		}
	}
	if newValue != nil {
		if raw, err := json.Marshal(newValue); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record company audit log", zap.Error(err))
	}
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a name and collapses runs of other characters into
// single hyphens.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "company"
	}
	return slug
}

// uniqueSlug derives a slug from name, appending a numeric suffix until
// it no longer collides with another company.
func (s *CompanyService) uniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	base := Slugify(name)
	slug := base
	for i := 2; ; i++ {
		taken, err := s.repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func companyListCacheKey(filter models.CompanyFilter) string {
	return fmt.Sprintf("companies:list:q=%s:ind=%s:loc=%s:sort=%s:%s:p=%d:ps=%d",
		strings.ToLower(filter.Query),
		strings.ToLower(filter.Industry),
		strings.ToLower(filter.Location),
		filter.SortBy,
		filter.SortOrder,
		filter.Page,
		filter.PageSize,
	)
}
