package models

import (
	"time"

	"github.com/lib/pq"
)

// ProgramType is the supervision level of a rotation.
type ProgramType string

const (
	ProgramTypeObservership ProgramType = "observership"
	ProgramTypeHandsOn      ProgramType = "hands_on"
	ProgramTypeFellowship   ProgramType = "fellowship"
	ProgramTypeClerkship    ProgramType = "clerkship"
)

// ProgramTypes lists every accepted program type.
var ProgramTypes = []ProgramType{
	ProgramTypeObservership,
	ProgramTypeHandsOn,
	ProgramTypeFellowship,
	ProgramTypeClerkship,
}

// Valid reports whether t is one of ProgramTypes.
func (t ProgramType) Valid() bool {
	for _, known := range ProgramTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Program is a clinical rotation offering. AvailableSeats never exceeds TotalSeats.
type Program struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	SpecialtyID    *string        `db:"specialty_id" json:"specialtyId,omitempty"`
	HospitalName   string         `db:"hospital_name" json:"hospitalName"`
	MentorName     *string        `db:"mentor_name" json:"mentorName,omitempty"`
	PreceptorID    *string        `db:"preceptor_id" json:"preceptorId,omitempty"`
	Location       string         `db:"location" json:"location"`
	Country        string         `db:"country" json:"country"`
	City           string         `db:"city" json:"city"`
	Type           ProgramType    `db:"type" json:"type"`
	StartDate      *time.Time     `db:"start_date" json:"startDate,omitempty"`
	Duration       int            `db:"duration" json:"duration"`
	IntakeMonths   pq.StringArray `db:"intake_months" json:"intakeMonths"`
	TotalSeats     int            `db:"total_seats" json:"totalSeats"`
	AvailableSeats int            `db:"available_seats" json:"availableSeats"`
	Fee            *float64       `db:"fee" json:"fee"`
	Currency       string         `db:"currency" json:"currency"`
	Requirements   *string        `db:"requirements" json:"requirements,omitempty"`
	ImageURL       *string        `db:"image_url" json:"imageUrl,omitempty"`
	IsActive       bool           `db:"is_active" json:"isActive"`
	IsFeatured     bool           `db:"is_featured" json:"isFeatured"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsFree reports whether the program has no fee. Null and zero both count.
func (p *Program) IsFree() bool {
	return p.Fee == nil || *p.Fee == 0
}

// ProgramDetail joins the specialty name for catalog responses.
type ProgramDetail struct {
	Program
	SpecialtyName *string `db:"specialty_name" json:"specialtyName,omitempty"`
}

// ProgramFilter enumerates every recognised catalog filter. Nil means unconstrained.
type ProgramFilter struct {
	SpecialtyID *string
	Location    *string
	Type        *ProgramType
	MinDuration *int
	MaxDuration *int
	IsFree      *bool
	IsActive    *bool
	IsFeatured  *bool
	PreceptorID *string
	Search      *string
	Page        int
	Limit       int
}

// ProgramSeatUsage summarises seat utilisation for a preceptor dashboard.
type ProgramSeatUsage struct {
	ProgramID      string `db:"program_id" json:"programId"`
	Title          string `db:"title" json:"title"`
	TotalSeats     int    `db:"total_seats" json:"totalSeats"`
	AvailableSeats int    `db:"available_seats" json:"availableSeats"`
	Pending        int    `db:"pending" json:"pendingApplications"`
}

// Specialty is a medical discipline programs are grouped under.
type Specialty struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Icon        *string   `db:"icon" json:"icon,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
