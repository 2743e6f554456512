package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AuditActionApplicationReview = "APPLICATION_REVIEW"
	AuditActionProgramCreate     = "PROGRAM_CREATE"
	AuditActionProgramUpdate     = "PROGRAM_UPDATE"
	AuditActionProgramDelete     = "PROGRAM_DELETE"
	AuditActionUserRoleUpdate    = "USER_ROLE_UPDATE"
	AuditActionReviewModerate    = "REVIEW_MODERATE"
	AuditActionContentChange     = "CONTENT_CHANGE"
	AuditActionSpecialtyChange   = "SPECIALTY_CHANGE"
	AuditActionInquiryUpdate     = "INQUIRY_UPDATE"
	AuditActionExportCreate      = "EXPORT_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"userId,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  datatypes.JSON `db:"old_values" json:"oldValues,omitempty"`
	NewValues  datatypes.JSON `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string         `db:"ip_address" json:"ipAddress"`
	UserAgent  string         `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}
