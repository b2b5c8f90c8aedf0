package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type statsCompanyRepository interface {
	RecomputeStats(ctx context.Context, companyID string) (*models.CompanyStats, error)
}

type statsCache interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StatsService rebuilds a company's cached review aggregates. Every
// transition into or out of APPROVED funnels through Recompute; there
// is deliberately no incremental path.
type StatsService struct {
	companies statsCompanyRepository
	cache     statsCache
	logger    *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(companies statsCompanyRepository, cache statsCache, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{companies: companies, cache: cache, logger: logger}
}

// Recompute refreshes the aggregates for one company and invalidates
// its cached listings.
func (s *StatsService) Recompute(ctx context.Context, companyID string) (*models.CompanyStats, error) {
	stats, err := s.companies.RecomputeStats(ctx, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute company stats")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "companies:*"); err != nil {
			s.logger.Warn("failed to invalidate company cache", zap.Error(err))
		}
	}

	return stats, nil
}

// RecomputeAll refreshes the aggregates for several companies,
// continuing past individual failures. Used after cascade deletes that
// touch reviews across companies.
func (s *StatsService) RecomputeAll(ctx context.Context, companyIDs []string) {
	for _, id := range companyIDs {
		if _, err := s.Recompute(ctx, id); err != nil {
			s.logger.Warn("failed to recompute stats", zap.String("company_id", id), zap.Error(err))
		}
	}
}
