package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type mockCompanyRepo struct {
	bySlug  map[string]*models.Company
	byID    map[string]*models.Company
	list    []models.Company
	updated *models.Company
}

func newMockCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{
		bySlug: make(map[string]*models.Company),
		byID:   make(map[string]*models.Company),
	}
}

func (m *mockCompanyRepo) FindByID(ctx context.Context, id string) (*models.Company, error) {
	company, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *company
	return &copy, nil
}

func (m *mockCompanyRepo) FindBySlug(ctx context.Context, slug string) (*models.Company, error) {
	company, ok := m.bySlug[slug]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return company, nil
}

func (m *mockCompanyRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	company, ok := m.bySlug[slug]
	return ok && company.ID != excludeID, nil
}

func (m *mockCompanyRepo) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error) {
	return m.list, len(m.list), nil
}

func (m *mockCompanyRepo) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = "c-" + company.Slug
	}
	m.bySlug[company.Slug] = company
	m.byID[company.ID] = company
	return nil
}

func (m *mockCompanyRepo) Update(ctx context.Context, company *models.Company) error {
	m.updated = company
	m.byID[company.ID] = company
	m.bySlug[company.Slug] = company
	return nil
}

type mockCompanyCache struct {
	store      map[string][]byte
	hits       int
	sets       int
	deletes    int
	getPayload interface{}
}

func (m *mockCompanyCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getPayload == nil {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	if cached, ok := m.getPayload.(*CompanyList); ok {
		if target, ok := dest.(*CompanyList); ok {
			*target = *cached
		}
	}
	return nil
}

func (m *mockCompanyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func (m *mockCompanyCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes++
	return nil
}

func newCompanyFixture() (*CompanyService, *mockCompanyRepo, *mockCompanyCache) {
	repo := newMockCompanyRepo()
	cache := &mockCompanyCache{store: make(map[string][]byte)}
	svc := NewCompanyService(repo, cache, &mockAudit{}, validator.New(), zap.NewNop(), time.Minute)
	return svc, repo, cache
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-corp", Slugify("Acme Corp"))
	assert.Equal(t, "jane-s-bakery", Slugify("Jane's Bakery!"))
	assert.Equal(t, "abc-123", Slugify("  ABC / 123  "))
	assert.Equal(t, "company", Slugify("???"))
}

func TestCreateCompanyDisambiguatesSlug(t *testing.T) {
	svc, repo, _ := newCompanyFixture()

	first, err := svc.Create(context.Background(), CreateCompanyRequest{Name: "Acme"}, "admin1", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "acme", first.Slug)

	second, err := svc.Create(context.Background(), CreateCompanyRequest{Name: "ACME"}, "admin1", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "acme-2", second.Slug)

	third, err := svc.Create(context.Background(), CreateCompanyRequest{Name: "acme"}, "admin1", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "acme-3", third.Slug)

	assert.Len(t, repo.byID, 3)
}

func TestCreateCompanyInvalidatesCache(t *testing.T) {
	svc, _, cache := newCompanyFixture()

	_, err := svc.Create(context.Background(), CreateCompanyRequest{Name: "Acme"}, "admin1", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.deletes)
}

func TestListServesFromCache(t *testing.T) {
	svc, repo, cache := newCompanyFixture()
	repo.list = []models.Company{{ID: "c1", Name: "Fresh"}}
	cache.getPayload = &CompanyList{
		Companies:  []models.Company{{ID: "c0", Name: "Cached"}},
		Pagination: models.Pagination{Page: 1, PageSize: 12, TotalCount: 1},
	}

	list, err := svc.List(context.Background(), models.CompanyFilter{})
	require.NoError(t, err)
	require.Len(t, list.Companies, 1)
	assert.Equal(t, "Cached", list.Companies[0].Name)
	assert.Equal(t, 1, cache.hits)
	assert.Zero(t, cache.sets)
}

func TestListCacheMissFillsCache(t *testing.T) {
	svc, repo, cache := newCompanyFixture()
	repo.list = []models.Company{{ID: "c1", Name: "Fresh"}}

	list, err := svc.List(context.Background(), models.CompanyFilter{})
	require.NoError(t, err)
	require.Len(t, list.Companies, 1)
	assert.Equal(t, "Fresh", list.Companies[0].Name)
	assert.Equal(t, 1, cache.sets)
}

func TestGetBySlugNotFound(t *testing.T) {
	svc, _, _ := newCompanyFixture()

	_, err := svc.GetBySlug(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateCompanyNameRegeneratesSlug(t *testing.T) {
	svc, repo, _ := newCompanyFixture()
	created, err := svc.Create(context.Background(), CreateCompanyRequest{Name: "Acme"}, "admin1", models.RequestMeta{})
	require.NoError(t, err)

	newName := "Acme Robotics"
	updated, err := svc.Update(context.Background(), created.ID, UpdateCompanyRequest{Name: &newName}, "admin1", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "acme-robotics", updated.Slug)
	assert.Equal(t, "Acme Robotics", repo.updated.Name)
}
