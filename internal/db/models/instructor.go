package models

import "time"

// Instructor is a teaching staff record that classes can link to.
type Instructor struct {
	ID         string    `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      *string   `db:"email" json:"email"`
	Title      *string   `db:"title" json:"title"`
	Department *string   `db:"department" json:"department"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
