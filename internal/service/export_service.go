package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
	"github.com/internlens/internlens-api/pkg/export"
)

type exportReviewRepository interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
}

type exportCompanyLookup interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat is the requested download format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the approved review corpus for offline
// moderation analysis.
type ExportService struct {
	reviews   exportReviewRepository
	companies exportCompanyLookup
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	maxRows   int
}

// NewExportService constructs an ExportService.
func NewExportService(reviews exportReviewRepository, companies exportCompanyLookup, logger *zap.Logger, maxRows int) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ExportService{
		reviews:   reviews,
		companies: companies,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
		maxRows:   maxRows,
	}
}

// ApprovedReviews renders every APPROVED review, optionally narrowed to
// one company, up to the configured row cap.
func (s *ExportService) ApprovedReviews(ctx context.Context, companyID string, format ExportFormat) (*ExportFile, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	approved := models.ReviewStatusApproved
	filter := models.ReviewFilter{
		CompanyID: companyID,
		Status:    &approved,
		SortBy:    "published_at",
		SortOrder: "DESC",
	}
	dataset, err := s.buildDataset(ctx, filter)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("approved_reviews_%s.csv", timestamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	default:
		payload, err := s.pdf.Render(dataset, "Approved Reviews")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("approved_reviews_%s.pdf", timestamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	}
}

func (s *ExportService) buildDataset(ctx context.Context, filter models.ReviewFilter) (export.Dataset, error) {
	headers := []string{"Review ID", "Company", "Role", "Season", "Year", "Difficulty", "Outcome", "Helpful", "Published At"}
	rows := make([]map[string]string, 0, 128)
	companyNames := make(map[string]string)

	filter.PageSize = 100
	for page := 1; len(rows) < s.maxRows; page++ {
		filter.Page = page
		reviews, total, err := s.reviews.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviews for export")
		}
		for _, review := range reviews {
			if len(rows) >= s.maxRows {
				break
			}
			name, ok := companyNames[review.CompanyID]
			if !ok {
				if company, err := s.companies.FindByID(ctx, review.CompanyID); err == nil {
					name = company.Name
				} else {
					name = review.CompanyID
				}
				companyNames[review.CompanyID] = name
			}
			rows = append(rows, map[string]string{
				"Review ID":    review.ID,
				"Company":      name,
				"Role":         review.RoleTitle,
				"Season":       derefString(review.Season),
				"Year":         derefInt(review.Year),
				"Difficulty":   derefInt(review.Difficulty),
				"Outcome":      derefString(review.Outcome),
				"Helpful":      fmt.Sprintf("%d", review.HelpfulScore),
				"Published At": formatExportTime(review.PublishedAt),
			})
		}
		if len(reviews) == 0 || page*filter.PageSize >= total {
			break
		}
	}

	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func derefInt(ptr *int) string {
	if ptr == nil {
		return ""
	}
	return fmt.Sprintf("%d", *ptr)
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
