package models

import "time"

// Notification type tags. Matching the side effects of moderation and
// company-request transitions.
const (
	NotificationReviewApproved         = "REVIEW_APPROVED"
	NotificationReviewRejected         = "REVIEW_REJECTED"
	NotificationReviewNeedsEdit        = "REVIEW_NEEDS_EDIT"
	NotificationReviewRemoved          = "REVIEW_REMOVED"
	NotificationReportActioned         = "REPORT_ACTIONED"
	NotificationCompanyRequestApproved = "COMPANY_REQUEST_APPROVED"
	NotificationCompanyRequestRejected = "COMPANY_REQUEST_REJECTED"
)

// Notification is an append-only message shown to a user.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Link      *string   `db:"link" json:"link,omitempty"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
