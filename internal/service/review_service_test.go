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

type mockReviewRepo struct {
	reviews       map[string]*models.Review
	listResult    []models.Review
	contentSaved  *models.Review
	statusChanges []models.ReviewStatus
	deleted       []string
}

func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*models.Review, error) {
	review, ok := m.reviews[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *review
	return &copy, nil
}

func (m *mockReviewRepo) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	out := make([]models.Review, 0, len(m.listResult))
	for _, review := range m.listResult {
		if filter.Status != nil && review.Status != *filter.Status {
			continue
		}
		out = append(out, review)
	}
	return out, len(out), nil
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = "r-new"
	}
	if m.reviews == nil {
		m.reviews = make(map[string]*models.Review)
	}
	m.reviews[review.ID] = review
	return nil
}

func (m *mockReviewRepo) UpdateContent(ctx context.Context, review *models.Review) error {
	m.contentSaved = review
	m.reviews[review.ID] = review
	return nil
}

func (m *mockReviewRepo) UpdateStatus(ctx context.Context, id string, status models.ReviewStatus, rejectionReason *string, publishedAt *time.Time) error {
	m.statusChanges = append(m.statusChanges, status)
	if review, ok := m.reviews[id]; ok {
		review.Status = status
		if review.PublishedAt == nil && publishedAt != nil {
			review.PublishedAt = publishedAt
		}
		if status == models.ReviewStatusApproved {
			review.RejectionReason = nil
		} else if rejectionReason != nil {
			review.RejectionReason = rejectionReason
		}
	}
	return nil
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.reviews, id)
	return nil
}

type mockCompanyLookup struct {
	companies map[string]*models.Company
}

func (m *mockCompanyLookup) FindByID(ctx context.Context, id string) (*models.Company, error) {
	company, ok := m.companies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return company, nil
}

type mockStats struct {
	recomputed []string
}

func (m *mockStats) Recompute(ctx context.Context, companyID string) (*models.CompanyStats, error) {
	m.recomputed = append(m.recomputed, companyID)
	return &models.CompanyStats{}, nil
}

func (m *mockStats) RecomputeAll(ctx context.Context, companyIDs []string) {
	m.recomputed = append(m.recomputed, companyIDs...)
}

type mockReviewNotifier struct {
	approved  []string
	rejected  []string
	needsEdit []string
	removed   []string
}

func (m *mockReviewNotifier) NotifyReviewApproved(userID, companyName, reviewID string) {
	m.approved = append(m.approved, userID)
}

func (m *mockReviewNotifier) NotifyReviewRejected(userID, companyName, reviewID, reason string) {
	m.rejected = append(m.rejected, userID)
}

func (m *mockReviewNotifier) NotifyReviewNeedsEdit(userID, companyName, reviewID string) {
	m.needsEdit = append(m.needsEdit, userID)
}

func (m *mockReviewNotifier) NotifyReviewRemoved(userID, companyName string) {
	m.removed = append(m.removed, userID)
}

const testCompanyID = "6ba7b810-9dad-41d1-80b4-00c04fd430c8"

func newReviewFixture() (*ReviewService, *mockReviewRepo, *mockStats, *mockReviewNotifier, *mockAudit) {
	repo := &mockReviewRepo{reviews: make(map[string]*models.Review)}
	companies := &mockCompanyLookup{companies: map[string]*models.Company{
		testCompanyID: {ID: testCompanyID, Name: "Acme", Slug: "acme"},
	}}
	stats := &mockStats{}
	notifier := &mockReviewNotifier{}
	audit := &mockAudit{}
	svc := NewReviewService(repo, companies, stats, notifier, audit, validator.New(), zap.NewNop())
	return svc, repo, stats, notifier, audit
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin1", Role: models.RoleAdmin}
}

func userClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleUser}
}

func TestSubmitReviewEntersPending(t *testing.T) {
	svc, _, _, _, _ := newReviewFixture()

	review, err := svc.Submit(context.Background(), "u1", SubmitReviewRequest{
		CompanyID: testCompanyID,
		RoleTitle: "SWE Intern",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, review.Status)
	assert.Nil(t, review.PublishedAt)
}

func TestSubmitReviewUnknownCompany(t *testing.T) {
	svc, _, _, _, _ := newReviewFixture()

	_, err := svc.Submit(context.Background(), "u1", SubmitReviewRequest{
		CompanyID: "7ba7b810-9dad-41d1-80b4-00c04fd430c9",
		RoleTitle: "SWE Intern",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetHidesPendingFromStrangers(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusPending}

	_, err := svc.Get(context.Background(), "r1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	review, err := svc.Get(context.Background(), "r1", &models.JWTClaims{UserID: "u1", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "r1", review.ID)

	review, err = svc.Get(context.Background(), "r1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "r1", review.ID)
}

func TestListForcesApprovedForAnonymous(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.listResult = []models.Review{
		{ID: "r1", Status: models.ReviewStatusApproved},
		{ID: "r2", Status: models.ReviewStatusPending},
	}

	list, err := svc.List(context.Background(), models.ReviewFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, list.Reviews, 1)
	assert.Equal(t, "r1", list.Reviews[0].ID)
}

func TestOwnerEditResubmitsNeedsEdit(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", RoleTitle: "Old", Status: models.ReviewStatusNeedsEdit}

	review, err := svc.Update(context.Background(), "r1", userClaims("u1"), SubmitReviewRequest{
		CompanyID: testCompanyID,
		RoleTitle: "New Title",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, review.Status)
	assert.Equal(t, "New Title", review.RoleTitle)
}

func TestOwnerCannotEditApproved(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusApproved}

	_, err := svc.Update(context.Background(), "r1", userClaims("u1"), SubmitReviewRequest{
		CompanyID: testCompanyID,
		RoleTitle: "New Title",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStrangerCannotEdit(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusPending}

	_, err := svc.Update(context.Background(), "r1", userClaims("u2"), SubmitReviewRequest{
		CompanyID: testCompanyID,
		RoleTitle: "New Title",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAdminEditKeepsStatus(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", RoleTitle: "Old", Status: models.ReviewStatusApproved}

	review, err := svc.Update(context.Background(), "r1", adminClaims(), SubmitReviewRequest{
		CompanyID: testCompanyID,
		RoleTitle: "Fixed Title",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, review.Status)
	assert.Equal(t, "Fixed Title", review.RoleTitle)
}

func TestApproveRecomputesAndNotifies(t *testing.T) {
	svc, repo, stats, notifier, audit := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusPending}

	review, err := svc.Approve(context.Background(), "r1", adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, review.Status)
	assert.NotNil(t, review.PublishedAt)
	assert.Equal(t, []string{testCompanyID}, stats.recomputed)
	assert.Equal(t, []string{"u1"}, notifier.approved)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionReviewApprove, audit.logs[0].Action)
}

func TestApproveAlreadyApproved(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusApproved}

	_, err := svc.Approve(context.Background(), "r1", adminClaims(), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReapprovalKeepsOriginalPublishDate(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	original := time.Now().Add(-48 * time.Hour)
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusNeedsEdit, PublishedAt: &original}

	review, err := svc.Approve(context.Background(), "r1", adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, review.PublishedAt)
	assert.Equal(t, original, *review.PublishedAt)
}

func TestReapprovalClearsRejectionReason(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	reason := "inaccurate"
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusRejected, RejectionReason: &reason}

	review, err := svc.Approve(context.Background(), "r1", adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, review.Status)
	assert.Nil(t, review.RejectionReason)
	assert.Nil(t, repo.reviews["r1"].RejectionReason)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, repo, _, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusPending}

	_, err := svc.Reject(context.Background(), "r1", RejectReviewRequest{}, adminClaims(), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRejectApprovedRecomputesStats(t *testing.T) {
	svc, repo, stats, notifier, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusApproved}

	review, err := svc.Reject(context.Background(), "r1", RejectReviewRequest{Reason: "inaccurate"}, adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRejected, review.Status)
	require.NotNil(t, review.RejectionReason)
	assert.Equal(t, "inaccurate", *review.RejectionReason)
	assert.Equal(t, []string{testCompanyID}, stats.recomputed)
	assert.Equal(t, []string{"u1"}, notifier.rejected)
}

func TestRejectPendingSkipsRecompute(t *testing.T) {
	svc, repo, stats, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusPending}

	_, err := svc.Reject(context.Background(), "r1", RejectReviewRequest{Reason: "inaccurate"}, adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, stats.recomputed)
}

func TestOwnerRemoveSkipsNotification(t *testing.T) {
	svc, repo, stats, notifier, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusApproved}

	review, err := svc.Remove(context.Background(), "r1", &models.JWTClaims{UserID: "u1", Role: models.RoleUser}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRemoved, review.Status)
	assert.Equal(t, []string{testCompanyID}, stats.recomputed)
	assert.Empty(t, notifier.removed)
}

func TestAdminRemoveNotifiesOwner(t *testing.T) {
	svc, repo, _, notifier, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusApproved}

	_, err := svc.Remove(context.Background(), "r1", adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, notifier.removed)
}

func TestHardDeleteRecomputesWhenApproved(t *testing.T) {
	svc, repo, stats, _, _ := newReviewFixture()
	repo.reviews["r1"] = &models.Review{ID: "r1", CompanyID: testCompanyID, UserID: "u1", Status: models.ReviewStatusApproved}

	err := svc.HardDelete(context.Background(), "r1", adminClaims(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, repo.deleted)
	assert.Equal(t, []string{testCompanyID}, stats.recomputed)
}
