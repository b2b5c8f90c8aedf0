package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/internlens/internlens-api/internal/models"
)

// CompanyRepository provides database access for companies and their
// cached review aggregates.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository creates a new instance of CompanyRepository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

const companyColumns = `id, name, slug, website, logo_uri, industry, hq_location, description, review_count, avg_difficulty, last_review_at, created_at, updated_at`

// FindByID returns a company by identifier.
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	query := fmt.Sprintf(`SELECT %s FROM companies WHERE id = $1 LIMIT 1`, companyColumns)
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find company by id: %w", err)
	}
	return &company, nil
}

// FindBySlug returns a company by its unique slug.
func (r *CompanyRepository) FindBySlug(ctx context.Context, slug string) (*models.Company, error) {
	query := fmt.Sprintf(`SELECT %s FROM companies WHERE slug = $1 LIMIT 1`, companyColumns)
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find company by slug: %w", err)
	}
	return &company, nil
}

// SlugExists reports whether a slug is taken by a company other than excludeID.
func (r *CompanyRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM companies WHERE slug = $1 AND id <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, slug, excludeID); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return count > 0, nil
}

// List returns companies based on filters with total count.
func (r *CompanyRepository) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error) {
	baseQuery := `FROM companies WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(COALESCE(description, '')) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
	}
	if filter.Industry != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(COALESCE(industry, '')) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Industry)+"%")
	}
	if filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(COALESCE(hq_location, '')) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Location)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":           true,
		"review_count":   true,
		"last_review_at": true,
		"created_at":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 12
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", companyColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}

	return companies, total, nil
}

// Create inserts a new company.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = now

	const query = `INSERT INTO companies (id, name, slug, website, logo_uri, industry, hq_location, description, review_count, created_at, updated_at) VALUES (:id, :name, :slug, :website, :logo_uri, :industry, :hq_location, :description, :review_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// Update updates the mutable profile fields of a company. Cached
// aggregates are owned by RecomputeStats and are not touched here.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()
	const query = `UPDATE companies SET name = :name, slug = :slug, website = :website, logo_uri = :logo_uri, industry = :industry, hq_location = :hq_location, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}

// RecomputeStats rebuilds the cached aggregates of a company strictly
// from its APPROVED reviews in a single statement. Always a full
// recompute; incremental patches would drift under concurrent or
// reordered transitions.
func (r *CompanyRepository) RecomputeStats(ctx context.Context, companyID string) (*models.CompanyStats, error) {
	const query = `
		UPDATE companies SET
			review_count = agg.cnt,
			avg_difficulty = agg.avg_difficulty,
			last_review_at = agg.last_review_at,
			updated_at = $2
		FROM (
			SELECT
				COUNT(*) AS cnt,
				AVG(difficulty) AS avg_difficulty,
				MAX(published_at) AS last_review_at
			FROM reviews
			WHERE company_id = $1 AND status = 'APPROVED'
		) AS agg
		WHERE companies.id = $1
		RETURNING companies.review_count, companies.avg_difficulty, companies.last_review_at`

	var stats models.CompanyStats
	if err := r.db.GetContext(ctx, &stats, query, companyID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("recompute company stats: %w", err)
	}
	return &stats, nil
}
