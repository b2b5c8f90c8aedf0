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

// ReviewRepository provides database access for reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new instance of ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, company_id, user_id, role_title, level, location, season, year, stages_count, interview_type, difficulty, outcome, currency, pay_hourly, pay_monthly, pay_yearly, application_process, interview_experience, culture, tips, overall, status, rejection_reason, helpful_score, published_at, created_at, updated_at`

// FindByID returns a review by identifier.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1 LIMIT 1`, reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find review by id: %w", err)
	}
	return &review, nil
}

// List returns reviews based on filters with total count.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	baseQuery := `FROM reviews WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CompanyID != "" {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)+1))
		args = append(args, filter.CompanyID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"created_at":    true,
		"published_at":  true,
		"helpful_score": true,
		"difficulty":    true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", reviewColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	return reviews, total, nil
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	const query = `INSERT INTO reviews (id, company_id, user_id, role_title, level, location, season, year, stages_count, interview_type, difficulty, outcome, currency, pay_hourly, pay_monthly, pay_yearly, application_process, interview_experience, culture, tips, overall, status, helpful_score, created_at, updated_at) VALUES (:id, :company_id, :user_id, :role_title, :level, :location, :season, :year, :stages_count, :interview_type, :difficulty, :outcome, :currency, :pay_hourly, :pay_monthly, :pay_yearly, :application_process, :interview_experience, :culture, :tips, :overall, :status, :helpful_score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// UpdateContent updates the free-form fields of a review together with
// its status (owner resubmission may move NEEDS_EDIT back to PENDING).
func (r *ReviewRepository) UpdateContent(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reviews SET role_title = :role_title, level = :level, location = :location, season = :season, year = :year, stages_count = :stages_count, interview_type = :interview_type, difficulty = :difficulty, outcome = :outcome, currency = :currency, pay_hourly = :pay_hourly, pay_monthly = :pay_monthly, pay_yearly = :pay_yearly, application_process = :application_process, interview_experience = :interview_experience, culture = :culture, tips = :tips, overall = :overall, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("update review content: %w", err)
	}
	return nil
}

// UpdateStatus transitions a review. published_at is only ever set once:
// COALESCE keeps the original publish date across later transitions. A
// transition into APPROVED clears any rejection reason left from an
// earlier rejection.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, id string, status models.ReviewStatus, rejectionReason *string, publishedAt *time.Time) error {
	const query = `UPDATE reviews SET status = $2, rejection_reason = CASE WHEN $2 = 'APPROVED' THEN NULL ELSE COALESCE($3, rejection_reason) END, published_at = COALESCE(published_at, $4), updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, rejectionReason, publishedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	return nil
}

// SetHelpfulScore persists the cached UP-vote count on the review row.
func (r *ReviewRepository) SetHelpfulScore(ctx context.Context, id string, score int) error {
	const query = `UPDATE reviews SET helpful_score = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, score, time.Now().UTC()); err != nil {
		return fmt.Errorf("set helpful score: %w", err)
	}
	return nil
}

// Delete hard-deletes a review and its votes and reports. Admin only;
// owners go through the REMOVED soft transition instead.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	steps := []string{
		`DELETE FROM review_votes WHERE review_id = $1`,
		`DELETE FROM review_reports WHERE review_id = $1`,
		`DELETE FROM reviews WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("cascade review delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review delete: %w", err)
	}
	return nil
}
