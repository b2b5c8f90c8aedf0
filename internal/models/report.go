package models

import "time"

// ReportStatus enumerates the lifecycle of a review report.
type ReportStatus string

const (
	ReportStatusOpen      ReportStatus = "OPEN"
	ReportStatusResolved  ReportStatus = "RESOLVED"
	ReportStatusDismissed ReportStatus = "DISMISSED"
)

// ReportAction is the admin disposition applied to an open report.
type ReportAction string

const (
	ReportActionFlagNeedsEdit ReportAction = "FLAG_NEEDS_EDIT"
	ReportActionRemove        ReportAction = "REMOVE"
	ReportActionDismiss       ReportAction = "DISMISS"
)

// ReviewReport is a user complaint about a review. A user may hold at
// most one OPEN report per review.
type ReviewReport struct {
	ID        string       `db:"id" json:"id"`
	ReviewID  string       `db:"review_id" json:"review_id"`
	UserID    string       `db:"user_id" json:"user_id"`
	Reason    string       `db:"reason" json:"reason"`
	Details   *string      `db:"details" json:"details,omitempty"`
	Status    ReportStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// ReportFilter captures listing criteria for reports.
type ReportFilter struct {
	Status   *ReportStatus
	ReviewID string
	Page     int
	PageSize int
}
