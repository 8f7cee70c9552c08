package models

import "time"

// Semester is an academic term. At most one semester is expected to be
// active at a time, enforced by the repository rather than the schema.
type Semester struct {
	ID           int64      `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Name         string     `db:"name" json:"name"`
	AcademicYear *string    `db:"academic_year" json:"academic_year"`
	Term         *int       `db:"term" json:"term"`
	StartDate    *time.Time `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
