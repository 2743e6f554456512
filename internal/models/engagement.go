package models

import "time"

// Favorite marks a program a user bookmarked.
type Favorite struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	ProgramID string    `db:"program_id" json:"programId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// FavoriteDetail carries enough of the program to render a card.
type FavoriteDetail struct {
	Favorite
	ProgramTitle string  `db:"program_title" json:"programTitle"`
	HospitalName string  `db:"hospital_name" json:"hospitalName"`
	Location     string  `db:"location" json:"location"`
	ImageURL     *string `db:"image_url" json:"imageUrl,omitempty"`
}

// ReviewStatus is the moderation state of a review, independent of any application.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Review is a user's rating of a program.
type Review struct {
	ID          string       `db:"id" json:"id"`
	UserID      string       `db:"user_id" json:"userId"`
	ProgramID   string       `db:"program_id" json:"programId"`
	Rating      int          `db:"rating" json:"rating"`
	Title       *string      `db:"title" json:"title,omitempty"`
	Content     string       `db:"content" json:"content"`
	Status      ReviewStatus `db:"status" json:"status"`
	ModeratedBy *string      `db:"moderated_by" json:"moderatedBy,omitempty"`
	ModeratedAt *time.Time   `db:"moderated_at" json:"moderatedAt,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
}

// ReviewDetail adds the author's display name.
type ReviewDetail struct {
	Review
	AuthorName string `db:"author_name" json:"authorName"`
}

// RatingSummary aggregates approved reviews for a program.
type RatingSummary struct {
	ProgramID string  `db:"program_id" json:"programId"`
	Average   float64 `db:"average" json:"average"`
	Count     int     `db:"count" json:"count"`
}

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	ProgramID *string
	Status    *ReviewStatus
	Page      int
	Limit     int
}

// WaitlistEntry holds a user's place in a program's queue. Positions only grow
// and are never handed out twice for the same program.
type WaitlistEntry struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	ProgramID string    `db:"program_id" json:"programId"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// WaitlistDetail adds program and user labels.
type WaitlistDetail struct {
	WaitlistEntry
	ProgramTitle string `db:"program_title" json:"programTitle"`
	UserEmail    string `db:"user_email" json:"userEmail"`
}
