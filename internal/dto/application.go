package dto

import "github.com/noah-isme/medrotation-api/internal/models"

// ApplyRequest is the body of POST /applications.
type ApplyRequest struct {
	ProgramID   string   `json:"programId" validate:"required"`
	CoverLetter *string  `json:"coverLetter" validate:"omitempty,max=10000"`
	Documents   []string `json:"documents" validate:"omitempty,max=20,dive,required,max=500"`
}

// UpdateApplicationRequest is the body of PUT /applications/:id. Reviewers
// send status and reviewNotes; applicants may edit their submission or
// withdraw by sending status "withdrawn".
type UpdateApplicationRequest struct {
	Status      *string  `json:"status" validate:"omitempty,app_status"`
	ReviewNotes *string  `json:"reviewNotes" validate:"omitempty,max=5000"`
	CoverLetter *string  `json:"coverLetter" validate:"omitempty,max=10000"`
	Documents   []string `json:"documents" validate:"omitempty,max=20,dive,required,max=500"`
}

// ApplicationList is the body of GET /applications.
type ApplicationList struct {
	Applications []models.ApplicationDetail `json:"applications"`
	TotalCount   int                        `json:"totalCount"`
	HasMore      bool                       `json:"hasMore"`
}
