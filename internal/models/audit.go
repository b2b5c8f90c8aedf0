package models

import "time"

// AuditAction constants represent admin actions to be logged.
const (
	AuditActionLogin                 = "LOGIN"
	AuditActionLogout                = "LOGOUT"
	AuditActionRegister              = "REGISTER"
	AuditActionReviewApprove         = "REVIEW_APPROVE"
	AuditActionReviewReject          = "REVIEW_REJECT"
	AuditActionReviewDelete          = "REVIEW_DELETE"
	AuditActionReportAction          = "REPORT_ACTION"
	AuditActionReportDismiss         = "REPORT_DISMISS"
	AuditActionCompanyCreate         = "COMPANY_CREATE"
	AuditActionCompanyUpdate         = "COMPANY_UPDATE"
	AuditActionCompanyRequestDecide  = "COMPANY_REQUEST_DECIDE"
	AuditActionUserRoleUpdate        = "USER_ROLE_UPDATE"
	AuditActionUserDelete            = "USER_DELETE"
)

// AuditLog represents an append-only audit trail record. Rows are never
// mutated or deleted.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RequestMeta carries caller metadata attached to audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}
