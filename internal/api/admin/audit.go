// audit.go implements the audit trail endpoints: the filtered, sorted,
// cursor-paginated query with profile enrichment and near-duplicate
// collapsing, and the trail reset.
package admin

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

// AuditHandlers handles audit trail endpoints.
type AuditHandlers struct {
	guard       *guard.Guard
	auditRepo   *repositories.AuditRepository
	profileRepo *repositories.ProfileRepository
	// dedupGranularity is the timestamp rounding of the duplicate key. Two
	// writes for the same resource and action inside one granule collapse
	// into the better-attributed one.
	dedupGranularity time.Duration
}

// NewAuditHandlers creates a new AuditHandlers instance.
func NewAuditHandlers(g *guard.Guard, auditRepo *repositories.AuditRepository, profileRepo *repositories.ProfileRepository, dedupGranularity time.Duration) *AuditHandlers {
	if dedupGranularity <= 0 {
		dedupGranularity = time.Second
	}
	return &AuditHandlers{
		guard:            g,
		auditRepo:        auditRepo,
		profileRepo:      profileRepo,
		dedupGranularity: dedupGranularity,
	}
}

// QueryHandler serves GET /api/audit.
func (h *AuditHandlers) QueryHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		q := repositories.AuditQuery{
			Table:           c.Query("table"),
			UserID:          c.Query("user_id"),
			Action:          normalizeAction(c.Query("action")),
			Sort:            parseAuditSort(c.Query("sort")),
			CursorDirection: parseCursorDirection(c.Query("cursor_direction")),
		}

		if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
			q.Limit = limit
		}
		if rowID := c.Query("row_id"); rowID != "" {
			q.RowID = &rowID
		}

		var err error
		if q.Start, err = parseDateParam(c.Query("start"), "start"); err != nil {
			return err
		}
		if q.End, err = parseDateParam(c.Query("end"), "end"); err != nil {
			return err
		}
		if q.Cursor, err = parseDateParam(c.Query("cursor"), "cursor"); err != nil {
			return err
		}
		if q.Start != nil && q.End != nil && q.Start.After(*q.End) {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_range",
				"start must be before end")
		}

		rows, err := h.auditRepo.List(c.Request.Context(), q)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_audit_log")
		}

		filtered := applyAuditSearch(rows, strings.TrimSpace(c.Query("search")))
		h.attachUserProfiles(c, filtered)
		deduped := dedupeAuditRows(filtered, h.dedupGranularity)

		// The cursor continues the database page, so it comes from the last
		// row before dedup collapsed anything.
		if len(filtered) > 0 {
			last := filtered[len(filtered)-1]
			c.Header("X-Next-Cursor", last.Timestamp().Format(time.RFC3339Nano))
			c.Header("X-Next-Cursor-Id", strconv.FormatInt(last.ID, 10))
		}

		helpers.JSON(deduped)
		return nil
	})
}

// ResetHandler serves DELETE /api/audit.
func (h *AuditHandlers) ResetHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{Origin: true}, func(c *gin.Context, helpers *guard.Helpers) error {
		if err := h.auditRepo.Reset(c.Request.Context()); err != nil {
			return httperror.WithDetails(http.StatusInternalServerError, "failed_to_reset_audit_log",
				"Unable to reset audit log")
		}
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}

// attachUserProfiles resolves the display name and avatar for every
// distinct acting user. Lookup failures degrade to unlabeled rows rather
// than failing the query.
func (h *AuditHandlers) attachUserProfiles(c *gin.Context, rows []models.AuditLog) {
	seen := make(map[string]struct{})
	var ids []string
	for i := range rows {
		if rows[i].UserID == nil || *rows[i].UserID == "" {
			continue
		}
		if _, ok := seen[*rows[i].UserID]; ok {
			continue
		}
		seen[*rows[i].UserID] = struct{}{}
		ids = append(ids, *rows[i].UserID)
	}
	if len(ids) == 0 {
		return
	}

	display, err := h.profileRepo.DisplayByID(c.Request.Context(), ids)
	if err != nil {
		return
	}
	for i := range rows {
		if rows[i].UserID == nil {
			continue
		}
		d := display[*rows[i].UserID]
		rows[i].UserName = d.Name
		rows[i].UserAvatar = d.Avatar
	}
}

// normalizeAction uppercases the action filter; empty and ALL mean no
// filter. Unknown actions pass through uppercased so the filter simply
// matches nothing.
func normalizeAction(action string) string {
	if action == "" {
		return ""
	}
	upper := strings.ToUpper(action)
	if upper == "ALL" {
		return ""
	}
	return upper
}

func parseAuditSort(value string) string {
	switch value {
	case "oldest", "user", "table":
		return value
	default:
		return "recent"
	}
}

func parseCursorDirection(value string) string {
	if value == "prev" {
		return "prev"
	}
	return "next"
}

// parseDateParam accepts RFC 3339 timestamps and plain dates.
func parseDateParam(value, label string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, httperror.WithDetails(http.StatusBadRequest, "invalid_"+label+"_parameter",
		"Invalid "+label+" parameter")
}

// applyAuditSearch keeps rows whose id, user, table, or row id contains the
// term, case-insensitively.
func applyAuditSearch(rows []models.AuditLog, search string) []models.AuditLog {
	if search == "" {
		return rows
	}
	term := strings.ToLower(search)
	var out []models.AuditLog
	for _, row := range rows {
		id := strconv.FormatInt(row.ID, 10)
		var user, rowID string
		if row.UserID != nil {
			user = strings.ToLower(*row.UserID)
		}
		if row.RowID != nil {
			rowID = strings.ToLower(*row.RowID)
		}
		table := strings.ToLower(row.TableName)
		if strings.Contains(id, term) || strings.Contains(user, term) ||
			strings.Contains(table, term) || strings.Contains(rowID, term) {
			out = append(out, row)
		}
	}
	return out
}

// dedupeAuditRows collapses rows describing the same change: same table,
// row, and action within one timestamp granule. When a system row and a
// user-attributed row collide, the user-attributed one wins regardless of
// arrival order.
func dedupeAuditRows(rows []models.AuditLog, granularity time.Duration) []models.AuditLog {
	result := make([]models.AuditLog, 0, len(rows))
	seen := make(map[string]int)

	for _, row := range rows {
		granule := row.Timestamp().UnixNano() / int64(granularity)
		var rowID string
		if row.RowID != nil {
			rowID = *row.RowID
		}
		key := row.TableName + "|" + rowID + "|" + row.Action + "|" + strconv.FormatInt(granule, 10)

		idx, ok := seen[key]
		if !ok {
			seen[key] = len(result)
			result = append(result, row)
			continue
		}
		if result[idx].IsSystem() && !row.IsSystem() {
			result[idx] = row
		}
	}
	return result
}
