package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/internlens/internlens-api/internal/models"
)

// CompanyRequestRepository provides database access for company
// addition requests.
type CompanyRequestRepository struct {
	db *sqlx.DB
}

// NewCompanyRequestRepository creates a new instance of CompanyRequestRepository.
func NewCompanyRequestRepository(db *sqlx.DB) *CompanyRequestRepository {
	return &CompanyRequestRepository{db: db}
}

const companyRequestColumns = `id, user_id, requested_name, website, note, contact_email, status, rejection_reason, company_id, created_at, updated_at`

// Create files a new company request.
func (r *CompanyRequestRepository) Create(ctx context.Context, req *models.CompanyRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO company_requests (id, user_id, requested_name, website, note, contact_email, status, created_at, updated_at) VALUES (:id, :user_id, :requested_name, :website, :note, :contact_email, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create company request: %w", err)
	}
	return nil
}

// FindByID returns a company request by identifier.
func (r *CompanyRequestRepository) FindByID(ctx context.Context, id string) (*models.CompanyRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM company_requests WHERE id = $1 LIMIT 1`, companyRequestColumns)
	var req models.CompanyRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find company request by id: %w", err)
	}
	return &req, nil
}

// List returns company requests, optionally narrowed to one status,
// oldest first.
func (r *CompanyRequestRepository) List(ctx context.Context, status *models.CompanyRequestStatus, page, pageSize int) ([]models.CompanyRequest, int, error) {
	baseQuery := `FROM company_requests WHERE 1=1`
	var args []interface{}

	if status != nil {
		baseQuery += " AND status = $1"
		args = append(args, *status)
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC LIMIT %d OFFSET %d", companyRequestColumns, baseQuery, pageSize, offset)

	var requests []models.CompanyRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list company requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count company requests: %w", err)
	}

	return requests, total, nil
}

// UpdateStatus decides a pending request. companyID links the created
// company on approval; rejectionReason records the reason on rejection.
// The PENDING guard makes repeated decisions match zero rows.
func (r *CompanyRequestRepository) UpdateStatus(ctx context.Context, id string, status models.CompanyRequestStatus, companyID, rejectionReason *string) (bool, error) {
	const query = `UPDATE company_requests SET status = $2, company_id = $3, rejection_reason = $4, updated_at = $5 WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, status, companyID, rejectionReason, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update company request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update company request status: %w", err)
	}
	return affected > 0, nil
}
