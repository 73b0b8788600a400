package models

import "time"

// Comment is an editorial note attached to a race
type Comment struct {
	ID          int64     `db:"id"`
	Timestamp   time.Time `db:"ts"`
	SubmittedBy string    `db:"submitted_by"`
	// OfficeID is P, S or H, or N for notes on the national summary.
	OfficeID string `db:"office_id"`
	Race     string `db:"race"`
	Title    string `db:"title"`
	Body     string `db:"body"`
}

// NationalCommentOffice and NationalCommentRace key comments on the national summary
const (
	NationalCommentOffice = "N"
	NationalCommentRace   = "N"
)
