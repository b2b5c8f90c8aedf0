package models

import "time"

// ReviewStatus enumerates the moderation lifecycle of a review.
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "PENDING"
	ReviewStatusApproved  ReviewStatus = "APPROVED"
	ReviewStatusNeedsEdit ReviewStatus = "NEEDS_EDIT"
	ReviewStatusRejected  ReviewStatus = "REJECTED"
	ReviewStatusRemoved   ReviewStatus = "REMOVED"
)

// Editable reports whether the owner may still modify the review.
// Owners can only touch PENDING and NEEDS_EDIT submissions; everything
// else requires an admin.
func (s ReviewStatus) Editable() bool {
	return s == ReviewStatusPending || s == ReviewStatusNeedsEdit
}

// Review is an internship experience submitted for a company.
//
// PublishedAt is set on the first transition into APPROVED and is never
// cleared afterwards, even if the review is later removed or rejected.
// HelpfulScore caches the count of UP votes; the vote rows remain the
// source of truth.
type Review struct {
	ID                  string       `db:"id" json:"id"`
	CompanyID           string       `db:"company_id" json:"company_id"`
	UserID              string       `db:"user_id" json:"user_id"`
	RoleTitle           string       `db:"role_title" json:"role_title"`
	Level               *string      `db:"level" json:"level,omitempty"`
	Location            *string      `db:"location" json:"location,omitempty"`
	Season              *string      `db:"season" json:"season,omitempty"`
	Year                *int         `db:"year" json:"year,omitempty"`
	StagesCount         *int         `db:"stages_count" json:"stages_count,omitempty"`
	InterviewType       *string      `db:"interview_type" json:"interview_type,omitempty"`
	Difficulty          *int         `db:"difficulty" json:"difficulty,omitempty"`
	Outcome             *string      `db:"outcome" json:"outcome,omitempty"`
	Currency            *string      `db:"currency" json:"currency,omitempty"`
	PayHourly           *float64     `db:"pay_hourly" json:"pay_hourly,omitempty"`
	PayMonthly          *float64     `db:"pay_monthly" json:"pay_monthly,omitempty"`
	PayYearly           *float64     `db:"pay_yearly" json:"pay_yearly,omitempty"`
	ApplicationProcess  *string      `db:"application_process" json:"application_process,omitempty"`
	InterviewExperience *string      `db:"interview_experience" json:"interview_experience,omitempty"`
	Culture             *string      `db:"culture" json:"culture,omitempty"`
	Tips                *string      `db:"tips" json:"tips,omitempty"`
	Overall             *string      `db:"overall" json:"overall,omitempty"`
	Status              ReviewStatus `db:"status" json:"status"`
	RejectionReason     *string      `db:"rejection_reason" json:"rejection_reason,omitempty"`
	HelpfulScore        int          `db:"helpful_score" json:"helpful_score"`
	PublishedAt         *time.Time   `db:"published_at" json:"published_at,omitempty"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updated_at"`
}

// ReviewFilter captures listing criteria for reviews.
type ReviewFilter struct {
	CompanyID string
	UserID    string
	Status    *ReviewStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
