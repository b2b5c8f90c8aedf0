package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
	"github.com/internlens/internlens-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, int, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// NotificationList is the page returned to the client together with the
// unread badge count.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int                   `json:"total"`
	Unread        int                   `json:"unread"`
}

// NotificationService persists notifications through a background queue.
// Emission is fire and forget: a failed enqueue is logged and swallowed
// so moderation flows never fail because of a notification.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService. Call Start
// before emitting.
func NewNotificationService(repo notificationRepository, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, n)
}

func (s *NotificationService) emit(n *models.Notification) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    n.Type,
		Payload: n,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", n.Type),
			zap.String("user_id", n.UserID),
			zap.Error(err))
	}
}

// NotifyReviewApproved tells the author the review went live.
func (s *NotificationService) NotifyReviewApproved(userID, companyName, reviewID string) {
	link := "/reviews/" + reviewID
	s.emit(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationReviewApproved,
		Title:   "Review approved",
		Message: fmt.Sprintf("Your review of %s has been approved and is now visible.", companyName),
		Link:    &link,
	})
}

// NotifyReviewRejected tells the author the review was rejected, with the reason.
func (s *NotificationService) NotifyReviewRejected(userID, companyName, reviewID, reason string) {
	link := "/reviews/" + reviewID
	s.emit(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationReviewRejected,
		Title:   "Review rejected",
		Message: fmt.Sprintf("Your review of %s was rejected: %s", companyName, reason),
		Link:    &link,
	})
}

// NotifyReviewNeedsEdit asks the author to revise and resubmit.
func (s *NotificationService) NotifyReviewNeedsEdit(userID, companyName, reviewID string) {
	link := "/reviews/" + reviewID
	s.emit(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationReviewNeedsEdit,
		Title:   "Review needs changes",
		Message: fmt.Sprintf("A moderator flagged your review of %s. Please edit and resubmit it.", companyName),
		Link:    &link,
	})
}

// NotifyReviewRemoved tells the author a published review was taken down.
func (s *NotificationService) NotifyReviewRemoved(userID, companyName string) {
	s.emit(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationReviewRemoved,
		Title:   "Review removed",
		Message: fmt.Sprintf("Your review of %s has been removed following a report.", companyName),
	})
}

// NotifyReportActioned tells the reporter their report led to action.
func (s *NotificationService) NotifyReportActioned(userID string) {
	s.emit(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationReportActioned,
		Title:   "Report reviewed",
		Message: "Thanks for your report. A moderator has taken action on the review.",
	})
}

// NotifyCompanyRequestApproved tells the requester the company was added.
func (s *NotificationService) NotifyCompanyRequestApproved(userID, companyName, companySlug string) {
	link := "/companies/" + companySlug
	s.emit(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationCompanyRequestApproved,
		Title:   "Company added",
		Message: fmt.Sprintf("%s has been added. You can now write a review for it.", companyName),
		Link:    &link,
	})
}

// NotifyCompanyRequestRejected tells the requester the request was declined.
func (s *NotificationService) NotifyCompanyRequestRejected(userID, companyName, reason string) {
	s.emit(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationCompanyRequestRejected,
		Title:   "Company request declined",
		Message: fmt.Sprintf("Your request to add %s was declined: %s", companyName, reason),
	})
}

// List returns the caller's notifications with total and unread counts.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) (*NotificationList, error) {
	notifications, total, unread, err := s.repo.ListByUser(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return &NotificationList{Notifications: notifications, Total: total, Unread: unread}, nil
}

// MarkRead marks the given ids as read for the caller. With no ids the
// caller's entire backlog is marked.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	var (
		updated int
		err     error
	)
	if len(ids) == 0 {
		updated, err = s.repo.MarkAllRead(ctx, userID)
	} else {
		updated, err = s.repo.MarkRead(ctx, userID, ids)
	}
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return updated, nil
}
