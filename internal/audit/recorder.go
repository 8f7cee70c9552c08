package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/class-scheduler/scheduler-backend/internal/telemetry"
)

// DefaultSuppressionWindow bounds the duplicate-write de-flooding heuristic.
// It is best-effort, not a linearizability guarantee: near-simultaneous
// writes for the same triple can both land, and the read path's dedup
// absorbs the result.
const DefaultSuppressionWindow = 3 * time.Second

// lookbackRows is how many recent rows per (table, row, action) triple the
// suppression check inspects.
const lookbackRows = 5

// Recorder writes audit entries. Every write is fire-and-forget: a failure
// anywhere in the sequence is logged and dropped so audit problems can never
// fail the primary operation.
type Recorder struct {
	db     *sqlx.DB
	window time.Duration
}

// NewRecorder wraps the shared database handle. A non-positive window falls
// back to DefaultSuppressionWindow.
func NewRecorder(db *sqlx.DB, window time.Duration) *Recorder {
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	return &Recorder{db: db, window: window}
}

// Record writes one entry for a state-changing event. An empty or "system"
// actorID denotes a system entry. The action is uppercased and the table lowercased
// and trimmed so the read path's dedup key matches regardless of caller
// casing.
//
// Suppression sequence, per the AuditLogEntry invariant:
//   - system entries are skipped when any row for the triple exists within
//     the suppression window, and also when any row for the triple exists at
//     all;
//   - user entries first delete any stale system (actor-less) row for the
//     triple, unbounded by the window, then are skipped when a
//     user-attributed row for the triple already exists in-window.
func (r *Recorder) Record(ctx context.Context, actorID, table, action string, rowID any, opts *Options) {
	if err := r.record(ctx, actorID, table, action, rowID, opts); err != nil {
		telemetry.AuditWritesDroppedTotal.Inc()
		slog.Debug("audit write dropped", "table", table, "action", action, "error", err)
	}
}

func (r *Recorder) record(ctx context.Context, actorID, table, action string, rowID any, opts *Options) error {
	normalizedAction := strings.ToUpper(action)
	normalizedTable := strings.ToLower(strings.TrimSpace(table))
	row := fmt.Sprint(rowID)

	detailsJSON, err := marshalDetails(normalizeDetails(opts))
	if err != nil {
		return err
	}

	recent, err := r.recentEntries(ctx, normalizedTable, row, normalizedAction)
	if err != nil {
		return err
	}

	now := time.Now()
	var inWindow []recentEntry
	for _, entry := range recent {
		if entry.At.Valid && absDuration(now.Sub(entry.At.Time)) <= r.window {
			inWindow = append(inWindow, entry)
		}
	}

	userID := nullableActor(actorID)
	isSystem := userID == nil

	if isSystem && len(inWindow) > 0 {
		return nil
	}

	if !isSystem {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM audit_log WHERE table_name = $1 AND row_id = $2 AND action = $3 AND user_id IS NULL`,
			normalizedTable, row, normalizedAction)
		if err != nil {
			return err
		}
		for _, entry := range inWindow {
			if entry.UserID.Valid && entry.UserID.String != "" {
				return nil
			}
		}
	}

	if isSystem {
		var count int
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM audit_log WHERE table_name = $1 AND row_id = $2 AND action = $3`,
			normalizedTable, row, normalizedAction).Scan(&count)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, table_name, action, row_id, details) VALUES ($1, $2, $3, $4, $5)`,
		userID, normalizedTable, normalizedAction, row, detailsJSON)
	return err
}

// RecordError writes an error-class entry. The actor may be a user id or the
// literal "system" when authorization never completed; system entries land
// with a NULL user_id since the column is a UUID. Failures are logged at
// error level (unlike Record's debug) because a dropped error entry means a
// server failure left no trace.
func (r *Recorder) RecordError(ctx context.Context, actorID, table, message string, details any) {
	merged := map[string]any{"message": message}
	if m, ok := details.(map[string]any); ok {
		for k, v := range m {
			if k == "message" {
				continue
			}
			merged[k] = v
		}
	} else if details != nil {
		merged["details"] = details
	}

	detailsJSON, err := marshalDetails(Sanitize(merged))
	if err == nil {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO audit_log (user_id, table_name, action, details) VALUES ($1, $2, $3, $4)`,
			nullableActor(actorID), strings.ToLower(strings.TrimSpace(table)), "ERROR", detailsJSON)
	}
	if err != nil {
		telemetry.AuditWritesDroppedTotal.Inc()
		slog.Error("failed to record audit error", "table", table, "error", err)
	}
}

// nullableActor maps the system actor to SQL NULL. audit_log.user_id is a
// UUID column, so the "system" sentinel must never reach it as a literal.
func nullableActor(actorID string) any {
	if actorID == "" || actorID == "system" {
		return nil
	}
	return actorID
}

type recentEntry struct {
	ID     int64
	At     sql.NullTime
	UserID sql.NullString
}

func (r *Recorder) recentEntries(ctx context.Context, table, row, action string) ([]recentEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, at, user_id FROM audit_log WHERE table_name = $1 AND row_id = $2 AND action = $3 ORDER BY id DESC LIMIT $4`,
		table, row, action, lookbackRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []recentEntry
	for rows.Next() {
		var e recentEntry
		if err := rows.Scan(&e.ID, &e.At, &e.UserID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalDetails(details any) (any, error) {
	if details == nil {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
