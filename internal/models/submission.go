package models

import "time"

// ContactSubmission is an append-only capture of the public contact form.
type ContactSubmission struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// JobApplication is an append-only capture of the public job application form.
type JobApplication struct {
	ID         string    `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	City       *string   `db:"city" json:"city,omitempty"`
	Position   string    `db:"position" json:"position"`
	Experience *string   `db:"experience" json:"experience,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SubmissionFilter pages through public form captures.
type SubmissionFilter struct {
	Search   string
	Page     int
	PageSize int
}
