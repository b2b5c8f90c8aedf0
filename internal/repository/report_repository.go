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

// ReportRepository provides database access for review reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, review_id, user_id, reason, details, status, created_at, updated_at`

// Create files a new report.
func (r *ReportRepository) Create(ctx context.Context, report *models.ReviewReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	const query = `INSERT INTO review_reports (id, review_id, user_id, reason, details, status, created_at, updated_at) VALUES (:id, :review_id, :user_id, :reason, :details, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// FindByID returns a report by identifier.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReviewReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM review_reports WHERE id = $1 LIMIT 1`, reportColumns)
	var report models.ReviewReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report by id: %w", err)
	}
	return &report, nil
}

// HasOpenReport reports whether the user already holds an OPEN report
// on the review.
func (r *ReportRepository) HasOpenReport(ctx context.Context, reviewID, userID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM review_reports WHERE review_id = $1 AND user_id = $2 AND status = 'OPEN'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, reviewID, userID); err != nil {
		return false, fmt.Errorf("check open report: %w", err)
	}
	return count > 0, nil
}

// List returns reports based on filters with total count, oldest first
// so the moderation queue drains in arrival order.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.ReviewReport, int, error) {
	baseQuery := `FROM review_reports WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.ReviewID != "" {
		conditions = append(conditions, fmt.Sprintf("review_id = $%d", len(args)+1))
		args = append(args, filter.ReviewID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC LIMIT %d OFFSET %d", reportColumns, baseQuery, pageSize, offset)

	var reports []models.ReviewReport
	if err := r.db.SelectContext(ctx, &reports, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	return reports, total, nil
}

// UpdateStatus moves a report out of OPEN. The guard on the current
// status keeps double-submitted admin actions idempotent: the second
// one matches zero rows.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) (bool, error) {
	const query = `UPDATE review_reports SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'OPEN'`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update report status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update report status: %w", err)
	}
	return affected > 0, nil
}
