package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// ApplicationStatus is the closed set of workflow states of an application.
type ApplicationStatus string

const (
	ApplicationPending       ApplicationStatus = "pending"
	ApplicationAccepted      ApplicationStatus = "accepted"
	ApplicationRejected      ApplicationStatus = "rejected"
	ApplicationWaitlisted    ApplicationStatus = "waitlisted"
	ApplicationVisaPending   ApplicationStatus = "visa_pending"
	ApplicationVisaConfirmed ApplicationStatus = "visa_confirmed"
	ApplicationEnrolled      ApplicationStatus = "enrolled"
	ApplicationWithdrawn     ApplicationStatus = "withdrawn"
)

// ApplicationStatuses lists every known status in workflow order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationPending,
	ApplicationWaitlisted,
	ApplicationAccepted,
	ApplicationVisaPending,
	ApplicationVisaConfirmed,
	ApplicationEnrolled,
	ApplicationRejected,
	ApplicationWithdrawn,
}

// NormalizeApplicationStatus trims and lowercases s and folds the legacy
// "approved" spelling into accepted. Unknown values are returned as-is and
// fail Valid.
func NormalizeApplicationStatus(s string) ApplicationStatus {
	normalized := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	if normalized == "approved" {
		return ApplicationAccepted
	}
	return normalized
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Final reports whether no further transition is possible from s.
func (s ApplicationStatus) Final() bool {
	return s == ApplicationRejected || s == ApplicationEnrolled || s == ApplicationWithdrawn
}

// HoldsSeat reports whether an application in s occupies one program seat.
func (s ApplicationStatus) HoldsSeat() bool {
	switch s {
	case ApplicationAccepted, ApplicationVisaPending, ApplicationVisaConfirmed, ApplicationEnrolled:
		return true
	}
	return false
}

// Application joins a student to a program.
type Application struct {
	ID          string            `db:"id" json:"id"`
	UserID      string            `db:"user_id" json:"userId"`
	ProgramID   string            `db:"program_id" json:"programId"`
	Status      ApplicationStatus `db:"status" json:"status"`
	CoverLetter *string           `db:"cover_letter" json:"coverLetter,omitempty"`
	Documents   pq.StringArray    `db:"documents" json:"documents"`
	ReviewNotes *string           `db:"review_notes" json:"reviewNotes,omitempty"`
	ReviewedAt  *time.Time        `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewedBy  *string           `db:"reviewed_by" json:"reviewedBy,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}

// ApplicationDetail adds the program and applicant labels used by listings and exports.
type ApplicationDetail struct {
	Application
	ProgramTitle       string  `db:"program_title" json:"programTitle"`
	HospitalName       string  `db:"hospital_name" json:"hospitalName"`
	ProgramPreceptorID *string `db:"program_preceptor_id" json:"-"`
	ApplicantEmail     string  `db:"applicant_email" json:"applicantEmail"`
	ApplicantName      string  `db:"applicant_name" json:"applicantName"`
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	UserID      *string
	ProgramID   *string
	PreceptorID *string
	Status      *ApplicationStatus
	Page        int
	Limit       int
}

// ApplicationReview is a single status change applied by a reviewer.
type ApplicationReview struct {
	ApplicationID string
	From          ApplicationStatus
	To            ApplicationStatus
	Notes         *string
	ReviewerID    string
	ReviewedAt    time.Time
	// SeatDelta is -1 to take a seat, +1 to release one, 0 otherwise.
	SeatDelta int
}

// StatusCount is one row of a GROUP BY status aggregate.
type StatusCount struct {
	Status ApplicationStatus `db:"status" json:"status"`
	Count  int               `db:"count" json:"count"`
}
