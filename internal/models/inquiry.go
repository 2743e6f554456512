package models

import "time"

// NewsletterSubscription is keyed by email; unsubscribing keeps the row.
type NewsletterSubscription struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UnsubscribedAt *time.Time `db:"unsubscribed_at" json:"unsubscribedAt,omitempty"`
}

// ContactStatus tracks how far a contact query has been handled.
type ContactStatus string

const (
	ContactNew        ContactStatus = "new"
	ContactInProgress ContactStatus = "in_progress"
	ContactResolved   ContactStatus = "resolved"
)

// ContactQuery is a message left through the public contact form.
type ContactQuery struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Email     string        `db:"email" json:"email"`
	Subject   string        `db:"subject" json:"subject"`
	Message   string        `db:"message" json:"message"`
	Status    ContactStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `db:"updated_at" json:"updatedAt"`
}
