package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internlens/internlens-api/internal/models"
)

func TestHasOpenReport(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM review_reports WHERE review_id = $1 AND user_id = $2 AND status = 'OPEN'")).
		WithArgs("r1", "u1").
		WillReturnRows(rows)

	exists, err := repo.HasOpenReport(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpenReportsOldestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "review_id", "user_id", "reason", "details", "status", "created_at", "updated_at"}).
		AddRow("rep1", "r1", "u1", "SPAM", nil, string(models.ReportStatusOpen), now, now)
	mock.ExpectQuery("SELECT .+ FROM review_reports WHERE 1=1 AND status = \\$1 ORDER BY created_at ASC LIMIT 20 OFFSET 0").
		WithArgs(string(models.ReportStatusOpen)).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM review_reports WHERE 1=1").
		WithArgs(string(models.ReportStatusOpen)).
		WillReturnRows(countRows)

	status := models.ReportStatusOpen
	reports, total, err := repo.List(context.Background(), models.ReportFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReportStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE review_reports SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'OPEN'")).
		WithArgs("rep1", string(models.ReportStatusResolved), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.UpdateStatus(context.Background(), "rep1", models.ReportStatusResolved)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReportStatusAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec("UPDATE review_reports SET status").
		WithArgs("rep1", string(models.ReportStatusDismissed), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.UpdateStatus(context.Background(), "rep1", models.ReportStatusDismissed)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
