// Package models defines the database row types for the scheduler backend.
package models

import (
	"encoding/json"
	"time"
)

// AuditLog is one audit trail entry. UserID is nil for system-attributed
// entries. At is the preferred event timestamp; rows written before the
// at column existed carry only CreatedAt.
type AuditLog struct {
	ID        int64            `db:"id" json:"id"`
	UserID    *string          `db:"user_id" json:"user_id"`
	TableName string           `db:"table_name" json:"table_name"`
	Action    string           `db:"action" json:"action"`
	RowID     *string          `db:"row_id" json:"row_id"`
	Details   *json.RawMessage `db:"details" json:"details,omitempty"`
	At        *time.Time       `db:"at" json:"at"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`

	// UserName and UserAvatar are populated by profile enrichment, not
	// stored.
	UserName   string `db:"-" json:"user_name,omitempty"`
	UserAvatar string `db:"-" json:"user_avatar,omitempty"`
}

// Timestamp returns the effective event time, preferring At.
func (a *AuditLog) Timestamp() time.Time {
	if a.At != nil {
		return *a.At
	}
	return a.CreatedAt
}

// IsSystem reports whether the entry has no user attribution.
func (a *AuditLog) IsSystem() bool {
	return a.UserID == nil || *a.UserID == ""
}
