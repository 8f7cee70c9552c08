package models

import "time"

// Class is a scheduled class meeting. Start and End are wall-clock times in
// HH:MM form; Day is either a 1-7 weekday number or a free-form label,
// stored as text.
type Class struct {
	ID           int64      `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Code         string     `db:"code" json:"code"`
	SectionID    *int64     `db:"section_id" json:"section_id"`
	Day          *string    `db:"day" json:"day"`
	Start        *string    `db:"start_time" json:"start"`
	End          *string    `db:"end_time" json:"end"`
	Units        *int       `db:"units" json:"units"`
	Room         *string    `db:"room" json:"room"`
	Instructor   *string    `db:"instructor" json:"instructor"`
	InstructorID *string    `db:"instructor_id" json:"instructor_id"`
	ArchivedAt   *time.Time `db:"archived_at" json:"archived_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
