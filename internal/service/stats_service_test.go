package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type mockStatsRepo struct {
	stats      map[string]*models.CompanyStats
	recomputed []string
}

func (m *mockStatsRepo) RecomputeStats(ctx context.Context, companyID string) (*models.CompanyStats, error) {
	m.recomputed = append(m.recomputed, companyID)
	stats, ok := m.stats[companyID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stats, nil
}

type mockStatsCache struct {
	patterns []string
}

func (m *mockStatsCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func TestRecomputeInvalidatesCache(t *testing.T) {
	avg := 3.5
	last := time.Now()
	repo := &mockStatsRepo{stats: map[string]*models.CompanyStats{
		"c1": {ReviewCount: 2, AvgDifficulty: &avg, LastReviewAt: &last},
	}}
	cache := &mockStatsCache{}
	svc := NewStatsService(repo, cache, zap.NewNop())

	stats, err := svc.Recompute(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReviewCount)
	assert.Equal(t, []string{"companies:*"}, cache.patterns)
}

func TestRecomputeUnknownCompany(t *testing.T) {
	repo := &mockStatsRepo{stats: map[string]*models.CompanyStats{}}
	svc := NewStatsService(repo, nil, zap.NewNop())

	_, err := svc.Recompute(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecomputeAllContinuesPastFailures(t *testing.T) {
	repo := &mockStatsRepo{stats: map[string]*models.CompanyStats{
		"c2": {ReviewCount: 1},
	}}
	svc := NewStatsService(repo, nil, zap.NewNop())

	svc.RecomputeAll(context.Background(), []string{"c1", "c2"})
	assert.Equal(t, []string{"c1", "c2"}, repo.recomputed)
}
