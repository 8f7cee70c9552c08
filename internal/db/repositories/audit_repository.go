// audit_repository.go implements AuditRepository, the read side of the audit
// trail: filtered, sorted, cursor-paginated queries with a fallback for
// databases that predate the at column.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
)

// MaxAuditPageSize caps how many rows a single audit query returns.
const MaxAuditPageSize = 200

// pqUndefinedColumn is the PostgreSQL error code for a missing column.
const pqUndefinedColumn = "42703"

// AuditQuery describes one page request against the audit log.
type AuditQuery struct {
	// Table filters on table_name; empty or "all" means no filter.
	Table string
	// UserID filters on the acting user; empty means no filter.
	UserID string
	// Action filters on the normalized action; empty means no filter.
	Action string
	// RowID filters on the affected row; nil means no filter.
	RowID *string
	// Sort is one of recent, oldest, user, table. Anything else is recent.
	Sort string
	// Limit is clamped to MaxAuditPageSize; non-positive means the cap.
	Limit int
	// Start and End bound the effective timestamp inclusively.
	Start *time.Time
	End   *time.Time
	// Cursor continues a previous page. Direction "prev" walks backwards;
	// anything else walks forwards.
	Cursor          *time.Time
	CursorDirection string
}

// AuditRepository handles audit log read and reset operations.
type AuditRepository struct {
	db *sqlx.DB

	// legacySchema flips once a query fails because the at column does not
	// exist. Further queries then go straight to created_at. It never flips
	// back within a process; applying the migration requires a restart to
	// pick the preferred column up again.
	legacySchema atomic.Bool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// List returns one page of audit entries. It queries against the at column
// first and retries against created_at when the database predates it.
//
// The page is raw: search filtering, profile enrichment, and dedup happen in
// the handler because they operate on the materialized rows.
func (r *AuditRepository) List(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	if !r.legacySchema.Load() {
		rows, err := r.list(ctx, q, "at")
		if err == nil {
			return rows, nil
		}
		if !isUndefinedColumn(err) {
			return nil, err
		}
		r.legacySchema.Store(true)
	}

	rows, err := r.list(ctx, q, "created_at")
	if err != nil {
		return nil, err
	}
	// Older rows carry created_at only; surface it through the preferred
	// field so callers never need to know which schema generation answered.
	for i := range rows {
		if rows[i].At == nil {
			at := rows[i].CreatedAt
			rows[i].At = &at
		}
	}
	return rows, nil
}

func (r *AuditRepository) list(ctx context.Context, q AuditQuery, column string) ([]models.AuditLog, error) {
	columns := "id, at, created_at, user_id, table_name, action, row_id, details"
	if column == "created_at" {
		columns = "id, created_at, user_id, table_name, action, row_id, details"
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Table != "" && q.Table != "all" {
		conds = append(conds, "table_name = "+arg(q.Table))
	}
	if q.UserID != "" {
		conds = append(conds, "user_id = "+arg(q.UserID))
	}
	if q.Action != "" {
		conds = append(conds, "action = "+arg(q.Action))
	}
	if q.RowID != nil {
		conds = append(conds, "row_id = "+arg(*q.RowID))
	}
	if q.Start != nil {
		conds = append(conds, column+" >= "+arg(*q.Start))
	}
	if q.End != nil {
		conds = append(conds, column+" <= "+arg(*q.End))
	}

	orderBy, ascending := auditOrdering(q.Sort, column)

	if q.Cursor != nil {
		cmp := cursorComparator(ascending, q.CursorDirection)
		conds = append(conds, column+" "+cmp+" "+arg(*q.Cursor))
	}

	query := "SELECT " + columns + " FROM audit_log"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy
	query += " LIMIT " + arg(clampLimit(q.Limit))

	var rows []models.AuditLog
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Reset deletes every audit entry.
func (r *AuditRepository) Reset(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM audit_log WHERE id > 0`)
	return err
}

// auditOrdering maps a sort key to an ORDER BY clause over the given
// timestamp column and reports whether the timestamp runs ascending, which
// the cursor comparator depends on.
func auditOrdering(sort, column string) (orderBy string, ascending bool) {
	switch sort {
	case "user":
		return "user_id ASC NULLS FIRST, " + column + " DESC NULLS LAST", false
	case "table":
		return "table_name ASC NULLS FIRST, " + column + " DESC NULLS LAST", false
	case "oldest":
		return column + " ASC NULLS FIRST", true
	default:
		return column + " DESC NULLS LAST", false
	}
}

// cursorComparator picks the strict comparison that continues the page in
// the requested direction given the sort order of the timestamp column.
func cursorComparator(ascending bool, direction string) string {
	if direction == "prev" {
		if ascending {
			return "<"
		}
		return ">"
	}
	if ascending {
		return ">"
	}
	return "<"
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxAuditPageSize {
		return MaxAuditPageSize
	}
	return limit
}

func isUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUndefinedColumn
}
