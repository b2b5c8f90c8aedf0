package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internlens/internlens-api/internal/models"
)

func TestCreateNotification(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))

	n := &models.Notification{UserID: "u1", Type: models.NotificationReviewApproved, Title: "Review approved", Message: "Your review of Acme is now live."}
	err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotificationsUnreadOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "link", "read", "created_at"}).
		AddRow("n1", "u1", models.NotificationReviewApproved, "Review approved", "Your review of Acme is now live.", nil, false, now)
	mock.ExpectQuery("SELECT .+ FROM notifications WHERE user_id = \\$1 AND read = FALSE ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("u1").
		WillReturnRows(listRows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = \\$1 AND read = FALSE").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = \\$1 AND read = FALSE").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notifications, total, unread, err := repo.ListByUser(context.Background(), "u1", true, 1, 20)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, unread)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadScopedToUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET read = TRUE WHERE user_id = \\$1 AND id = ANY\\(\\$2\\)").
		WillReturnResult(sqlmock.NewResult(0, 2))

	updated, err := repo.MarkRead(context.Background(), "u1", []string{"n1", "n2", "someone-elses"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadEmpty(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	updated, err := repo.MarkRead(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
}
