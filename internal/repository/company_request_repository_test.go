package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internlens/internlens-api/internal/models"
)

func TestCreateCompanyRequestAnonymous(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompanyRequestRepository(db)

	mock.ExpectExec("INSERT INTO company_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.CompanyRequest{RequestedName: "Initech", Status: models.CompanyRequestPending}
	err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Nil(t, req.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideCompanyRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompanyRequestRepository(db)

	companyID := "c1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE company_requests SET status = $2, company_id = $3, rejection_reason = $4, updated_at = $5 WHERE id = $1 AND status = 'PENDING'")).
		WithArgs("req1", string(models.CompanyRequestApproved), &companyID, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	decided, err := repo.UpdateStatus(context.Background(), "req1", models.CompanyRequestApproved, &companyID, nil)
	require.NoError(t, err)
	assert.True(t, decided)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideCompanyRequestTwice(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompanyRequestRepository(db)

	reason := "duplicate of an existing company"
	mock.ExpectExec("UPDATE company_requests SET status").
		WithArgs("req1", string(models.CompanyRequestRejected), nil, &reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	decided, err := repo.UpdateStatus(context.Background(), "req1", models.CompanyRequestRejected, nil, &reason)
	require.NoError(t, err)
	assert.False(t, decided)
	assert.NoError(t, mock.ExpectationsWereMet())
}
