package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportQueued     ExportStatus = "queued"
	ExportProcessing ExportStatus = "processing"
	ExportFinished   ExportStatus = "finished"
	ExportFailed     ExportStatus = "failed"
)

// ExportParams narrows the applications included in an export.
type ExportParams struct {
	Status    *ApplicationStatus `json:"status,omitempty"`
	ProgramID *string            `json:"programId,omitempty"`
}

// ExportJob is a persisted application export request.
type ExportJob struct {
	ID           string                           `db:"id" json:"id"`
	Format       string                           `db:"format" json:"format"`
	Params       datatypes.JSONType[ExportParams] `db:"params" json:"params"`
	Status       ExportStatus                     `db:"status" json:"status"`
	Progress     int                              `db:"progress" json:"progress"`
	ResultPath   *string                          `db:"result_path" json:"-"`
	DownloadURL  string                           `db:"-" json:"downloadUrl,omitempty"`
	ErrorMessage *string                          `db:"error_message" json:"errorMessage,omitempty"`
	CreatedBy    string                           `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time                        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time                        `db:"updated_at" json:"updatedAt"`
	FinishedAt   *time.Time                       `db:"finished_at" json:"finishedAt,omitempty"`
}
