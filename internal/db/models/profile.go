package models

import "time"

// Profile is an account row. Admin dashboard access additionally requires a
// row in the admins table.
type Profile struct {
	ID           string     `db:"id" json:"id"`
	Email        *string    `db:"email" json:"email"`
	FullName     *string    `db:"full_name" json:"full_name"`
	StudentID    *string    `db:"student_id" json:"student_id"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url"`
	Role         string     `db:"role" json:"role"`
	Status       string     `db:"status" json:"status"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	LastSignInAt *time.Time `db:"last_sign_in_at" json:"last_sign_in_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Label returns the display name used by audit enrichment: full name when
// set, otherwise the email address.
func (p *Profile) Label() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	if p.Email != nil {
		return *p.Email
	}
	return ""
}
