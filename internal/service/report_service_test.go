package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type mockReportRepo struct {
	reports map[string]*models.ReviewReport
	open    map[string]bool // key: reviewID/userID
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.ReviewReport) error {
	if report.ID == "" {
		report.ID = "rep-new"
	}
	m.reports[report.ID] = report
	m.open[voteKey(report.ReviewID, report.UserID)] = true
	return nil
}

func (m *mockReportRepo) FindByID(ctx context.Context, id string) (*models.ReviewReport, error) {
	report, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *report
	return &copy, nil
}

func (m *mockReportRepo) HasOpenReport(ctx context.Context, reviewID, userID string) (bool, error) {
	return m.open[voteKey(reviewID, userID)], nil
}

func (m *mockReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.ReviewReport, int, error) {
	out := make([]models.ReviewReport, 0, len(m.reports))
	for _, report := range m.reports {
		if filter.Status != nil && report.Status != *filter.Status {
			continue
		}
		out = append(out, *report)
	}
	return out, len(out), nil
}

func (m *mockReportRepo) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) (bool, error) {
	report, ok := m.reports[id]
	if !ok || report.Status != models.ReportStatusOpen {
		return false, nil
	}
	report.Status = status
	return true, nil
}

type mockModerator struct {
	flagged []string
	removed []string
	err     error
}

func (m *mockModerator) FlagNeedsEdit(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.flagged = append(m.flagged, id)
	return &models.Review{ID: id, Status: models.ReviewStatusNeedsEdit}, nil
}

func (m *mockModerator) Remove(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) (*models.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.removed = append(m.removed, id)
	return &models.Review{ID: id, Status: models.ReviewStatusRemoved}, nil
}

type mockReportNotifier struct {
	actioned []string
}

func (m *mockReportNotifier) NotifyReportActioned(userID string) {
	m.actioned = append(m.actioned, userID)
}

func newReportFixture() (*ReportService, *mockReportRepo, *mockModerator, *mockReportNotifier) {
	repo := &mockReportRepo{reports: make(map[string]*models.ReviewReport), open: make(map[string]bool)}
	reviews := &mockReviewRepo{reviews: map[string]*models.Review{
		"r1": {ID: "r1", CompanyID: testCompanyID, UserID: "author", Status: models.ReviewStatusApproved},
		"r2": {ID: "r2", CompanyID: testCompanyID, UserID: "author", Status: models.ReviewStatusPending},
	}}
	moderator := &mockModerator{}
	notifier := &mockReportNotifier{}
	svc := NewReportService(repo, reviews, moderator, notifier, &mockAudit{}, validator.New(), zap.NewNop())
	return svc, repo, moderator, notifier
}

func TestFileReport(t *testing.T) {
	svc, _, _, _ := newReportFixture()

	report, err := svc.File(context.Background(), "r1", "u1", FileReportRequest{Reason: "SPAM"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusOpen, report.Status)
	assert.Equal(t, "r1", report.ReviewID)
}

func TestFileDuplicateOpenReport(t *testing.T) {
	svc, _, _, _ := newReportFixture()

	_, err := svc.File(context.Background(), "r1", "u1", FileReportRequest{Reason: "SPAM"})
	require.NoError(t, err)
	_, err = svc.File(context.Background(), "r1", "u1", FileReportRequest{Reason: "SPAM again"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFileReportOnUnapprovedReview(t *testing.T) {
	svc, _, _, _ := newReportFixture()

	_, err := svc.File(context.Background(), "r2", "u1", FileReportRequest{Reason: "SPAM"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestActionFlagNeedsEditResolves(t *testing.T) {
	svc, repo, moderator, notifier := newReportFixture()
	repo.reports["rep1"] = &models.ReviewReport{ID: "rep1", ReviewID: "r1", UserID: "u1", Status: models.ReportStatusOpen}

	report, err := svc.Action(context.Background(), "rep1", ActionReportRequest{ActionType: models.ReportActionFlagNeedsEdit}, adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, report.Status)
	assert.Equal(t, []string{"r1"}, moderator.flagged)
	assert.Equal(t, []string{"u1"}, notifier.actioned)
}

func TestActionRemoveResolves(t *testing.T) {
	svc, repo, moderator, notifier := newReportFixture()
	repo.reports["rep1"] = &models.ReviewReport{ID: "rep1", ReviewID: "r1", UserID: "u1", Status: models.ReportStatusOpen}

	report, err := svc.Action(context.Background(), "rep1", ActionReportRequest{ActionType: models.ReportActionRemove}, adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, report.Status)
	assert.Equal(t, []string{"r1"}, moderator.removed)
	assert.Equal(t, []string{"u1"}, notifier.actioned)
}

func TestActionDismissDoesNotTouchReview(t *testing.T) {
	svc, repo, moderator, notifier := newReportFixture()
	repo.reports["rep1"] = &models.ReviewReport{ID: "rep1", ReviewID: "r1", UserID: "u1", Status: models.ReportStatusOpen}

	report, err := svc.Action(context.Background(), "rep1", ActionReportRequest{ActionType: models.ReportActionDismiss}, adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDismissed, report.Status)
	assert.Empty(t, moderator.flagged)
	assert.Empty(t, moderator.removed)
	assert.Empty(t, notifier.actioned)
}

func TestActionAlreadyDecided(t *testing.T) {
	svc, repo, _, _ := newReportFixture()
	repo.reports["rep1"] = &models.ReviewReport{ID: "rep1", ReviewID: "r1", UserID: "u1", Status: models.ReportStatusResolved}

	_, err := svc.Action(context.Background(), "rep1", ActionReportRequest{ActionType: models.ReportActionDismiss}, adminClaims(), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
