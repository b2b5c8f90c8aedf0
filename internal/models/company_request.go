package models

import "time"

// CompanyRequestStatus enumerates the lifecycle of an addition request.
type CompanyRequestStatus string

const (
	CompanyRequestPending  CompanyRequestStatus = "PENDING"
	CompanyRequestApproved CompanyRequestStatus = "APPROVED"
	CompanyRequestRejected CompanyRequestStatus = "REJECTED"
)

// CompanyRequest asks an admin to add a company to the catalogue.
// UserID is nil for anonymous submissions. CompanyID links the created
// company once the request is approved.
type CompanyRequest struct {
	ID              string               `db:"id" json:"id"`
	UserID          *string              `db:"user_id" json:"user_id,omitempty"`
	RequestedName   string               `db:"requested_name" json:"requested_name"`
	Website         *string              `db:"website" json:"website,omitempty"`
	Note            *string              `db:"note" json:"note,omitempty"`
	ContactEmail    *string              `db:"contact_email" json:"contact_email,omitempty"`
	Status          CompanyRequestStatus `db:"status" json:"status"`
	RejectionReason *string              `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CompanyID       *string              `db:"company_id" json:"company_id,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
}
