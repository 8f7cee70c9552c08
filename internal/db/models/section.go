package models

import "time"

// Section groups classes under a semester.
type Section struct {
	ID            int64     `db:"id" json:"id"`
	Code          *string   `db:"code" json:"code"`
	SectionNumber *string   `db:"section_number" json:"section_number"`
	SemesterID    *int64    `db:"semester_id" json:"semester_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	// ClassCount is populated by list queries, not stored.
	ClassCount int `db:"class_count" json:"class_count"`
}
