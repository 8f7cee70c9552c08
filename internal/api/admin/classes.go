// classes.go implements handlers for class meeting CRUD: listing with
// search and configurable sorting, creation, partial update, and single or
// batch deletion. Every mutation leaves an audit entry.
package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// classPayload is the create and patch body. Pointers distinguish absent
// fields from explicit nulls; Day additionally accepts either a 1-7 weekday
// number or a short label.
type classPayload struct {
	Title        *string `json:"title"`
	Code         *string `json:"code"`
	SectionID    *int64  `json:"section_id"`
	Day          any     `json:"day"`
	Start        *string `json:"start"`
	End          *string `json:"end"`
	Units        *int    `json:"units"`
	Room         *string `json:"room"`
	Instructor   *string `json:"instructor"`
	InstructorID *string `json:"instructor_id"`

	dayProvided bool
}

// UnmarshalJSON tracks whether day appeared in the body at all, since a
// patch must distinguish "clear the day" from "leave it alone".
func (p *classPayload) UnmarshalJSON(data []byte) error {
	type alias classPayload
	var a alias
	if err := strictUnmarshal(data, &a); err != nil {
		return err
	}
	*p = classPayload(a)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	_, p.dayProvided = fields["day"]
	return nil
}

// ClassHandlers handles class endpoints.
type ClassHandlers struct {
	guard     *guard.Guard
	classRepo *repositories.ClassRepository
}

// NewClassHandlers creates a new ClassHandlers instance.
func NewClassHandlers(g *guard.Guard, classRepo *repositories.ClassRepository) *ClassHandlers {
	return &ClassHandlers{guard: g, classRepo: classRepo}
}

// ListHandler serves GET /api/classes.
func (h *ClassHandlers) ListHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		q := repositories.ClassQuery{
			Search:    repositories.SanitizeSearchTerm(c.Query("search")),
			Sort:      c.Query("sort"),
			Direction: c.Query("direction"),
		}
		if raw := c.Query("section_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return httperror.WithDetails(http.StatusBadRequest, "invalid_section_id",
					"section_id must be a positive integer")
			}
			q.SectionID = &id
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 200 {
			limit = 50
		}
		q.Limit = limit
		q.Offset = (page - 1) * limit

		rows, total, err := h.classRepo.List(c.Request.Context(), q)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_classes")
		}

		helpers.JSON(gin.H{
			"rows":  rows,
			"count": total,
			"page":  page,
			"limit": limit,
		})
		return nil
	})
}

// GetHandler serves GET /api/classes/:id.
func (h *ClassHandlers) GetHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseClassID(c.Param("id"))
		if err != nil {
			return err
		}
		row, err := h.classRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_class")
		}
		if row == nil {
			return httperror.WithDetails(http.StatusNotFound, "class_not_found", "Class not found")
		}
		helpers.JSON(row)
		return nil
	})
}

// CreateHandler serves POST /api/classes.
func (h *ClassHandlers) CreateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var payload classPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		issues := payload.validate(true)
		if len(issues) > 0 {
			return validationError(issues)
		}

		class := payload.toClass()
		row, err := h.classRepo.Create(c.Request.Context(), class)
		if err != nil {
			if mapped := mapDatabaseError(err, "A class with this information already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_create_class")
		}

		helpers.Audit(guard.AuditEntry{
			Table: "classes", Action: "insert", RowID: row.ID, Details: row,
		})
		helpers.JSON(row, http.StatusCreated)
		return nil
	})
}

// UpdateHandler serves PATCH /api/classes/:id.
func (h *ClassHandlers) UpdateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseClassID(c.Param("id"))
		if err != nil {
			return err
		}

		var payload classPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		issues := payload.validate(false)
		if len(issues) > 0 {
			return validationError(issues)
		}
		update := payload.toUpdate()
		if !payload.hasChanges() {
			return httperror.WithDetails(http.StatusUnprocessableEntity, "nothing_to_update", "Nothing to update")
		}

		before, err := h.classRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_update_class")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "class_not_found", "Class not found")
		}

		// A patch supplying only start or only end still must not invert
		// the time range that ends up stored.
		if err := validateTimeRange(payload, before); err != nil {
			return err
		}

		row, err := h.classRepo.Update(c.Request.Context(), id, update)
		if err != nil {
			if mapped := mapDatabaseError(err, "A class with this information already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_update_class")
		}
		if row == nil {
			return httperror.WithDetails(http.StatusNotFound, "class_not_found", "Class not found")
		}

		helpers.Audit(guard.AuditEntry{
			Table: "classes", Action: "update", RowID: id, Before: before, After: row,
		})
		helpers.JSON(row)
		return nil
	})
}

// DeleteHandler serves DELETE /api/classes/:id.
func (h *ClassHandlers) DeleteHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseClassID(c.Param("id"))
		if err != nil {
			return err
		}

		before, err := h.classRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_class")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "class_not_found", "Class not found")
		}

		if _, err := h.classRepo.Delete(c.Request.Context(), id); err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_class")
		}

		helpers.Audit(guard.AuditEntry{
			Table: "classes", Action: "delete", RowID: id, Before: before,
		})
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}

// BulkDeleteHandler serves POST /api/classes/bulk-delete.
func (h *ClassHandlers) BulkDeleteHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var body struct {
			IDs []int64 `json:"ids"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || len(body.IDs) == 0 {
			return validationError([]fieldIssue{{Path: "ids", Message: "At least one class id is required"}})
		}
		for _, id := range body.IDs {
			if id <= 0 {
				return validationError([]fieldIssue{{Path: "ids", Message: "Class id must be > 0"}})
			}
		}

		n, err := h.classRepo.DeleteMany(c.Request.Context(), body.IDs)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_classes")
		}

		helpers.Audit(guard.AuditEntry{
			Table: "classes", Action: "delete", RowID: "bulk",
			Details: map[string]any{"ids": body.IDs, "deleted": n},
		})
		helpers.JSON(gin.H{"ok": true, "deleted": n})
		return nil
	})
}

func parseClassID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, httperror.WithDetails(http.StatusBadRequest, "invalid_class_id",
			"Class id must be a positive integer")
	}
	return id, nil
}

// validate checks field constraints. When create is true the required
// fields must be present.
func (p *classPayload) validate(create bool) []fieldIssue {
	var issues []fieldIssue

	if create {
		if p.Title == nil || strings.TrimSpace(*p.Title) == "" {
			issues = append(issues, fieldIssue{Path: "title", Message: "Title is required"})
		}
		if p.Code == nil || strings.TrimSpace(*p.Code) == "" {
			issues = append(issues, fieldIssue{Path: "code", Message: "Code is required"})
		}
		if p.SectionID == nil {
			issues = append(issues, fieldIssue{Path: "section_id", Message: "Section id is required"})
		}
		if p.Start == nil {
			issues = append(issues, fieldIssue{Path: "start", Message: "Start is required"})
		}
		if p.End == nil {
			issues = append(issues, fieldIssue{Path: "end", Message: "End is required"})
		}
	}

	if p.Title != nil && len(strings.TrimSpace(*p.Title)) > 120 {
		issues = append(issues, fieldIssue{Path: "title", Message: "Max 120 characters"})
	}
	if p.Code != nil && len(strings.TrimSpace(*p.Code)) > 20 {
		issues = append(issues, fieldIssue{Path: "code", Message: "Max 20 characters"})
	}
	if p.SectionID != nil && *p.SectionID <= 0 {
		issues = append(issues, fieldIssue{Path: "section_id", Message: "Section id must be > 0"})
	}
	if p.Start != nil && !timeOfDay.MatchString(*p.Start) {
		issues = append(issues, fieldIssue{Path: "start", Message: "Time must be HH:MM"})
	}
	if p.End != nil && !timeOfDay.MatchString(*p.End) {
		issues = append(issues, fieldIssue{Path: "end", Message: "Time must be HH:MM"})
	}
	if p.Start != nil && p.End != nil && *p.Start >= *p.End {
		issues = append(issues, fieldIssue{Path: "end", Message: "Start must be before end"})
	}
	if p.Units != nil && (*p.Units < 0 || *p.Units > 12) {
		issues = append(issues, fieldIssue{Path: "units", Message: "Units must be between 0 and 12"})
	}
	if p.Room != nil && len(strings.TrimSpace(*p.Room)) > 40 {
		issues = append(issues, fieldIssue{Path: "room", Message: "Max 40 characters"})
	}
	if p.Instructor != nil && len(strings.TrimSpace(*p.Instructor)) > 80 {
		issues = append(issues, fieldIssue{Path: "instructor", Message: "Max 80 characters"})
	}

	if _, ok := p.dayValue(); !ok {
		issues = append(issues, fieldIssue{Path: "day", Message: "Day must be a 1-7 number or a short label"})
	}
	return issues
}

// dayValue normalizes the day union to a nullable string, reporting whether
// the raw value was acceptable.
func (p *classPayload) dayValue() (*string, bool) {
	if p.Day == nil {
		return nil, true
	}
	switch v := p.Day.(type) {
	case float64:
		n := int(v)
		if float64(n) != v || n < 1 || n > 7 {
			return nil, false
		}
		s := strconv.Itoa(n)
		return &s, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || len(trimmed) > 20 {
			return nil, false
		}
		return &trimmed, true
	default:
		return nil, false
	}
}

func (p *classPayload) toClass() *models.Class {
	c := &models.Class{}
	if p.Title != nil {
		c.Title = strings.TrimSpace(*p.Title)
	}
	if p.Code != nil {
		c.Code = strings.TrimSpace(*p.Code)
	}
	c.SectionID = p.SectionID
	day, _ := p.dayValue()
	c.Day = day
	c.Start = p.Start
	c.End = p.End
	c.Units = p.Units
	c.Room = trimPtr(p.Room)
	c.Instructor = trimPtr(p.Instructor)
	c.InstructorID = p.InstructorID
	return c
}

func (p *classPayload) toUpdate() repositories.ClassUpdate {
	var u repositories.ClassUpdate
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		u.Title = &title
	}
	if p.Code != nil {
		code := strings.TrimSpace(*p.Code)
		u.Code = &code
	}
	if p.SectionID != nil {
		u.SectionID = &p.SectionID
	}
	if p.dayProvided {
		day, _ := p.dayValue()
		u.Day = &day
	}
	if p.Start != nil {
		u.Start = &p.Start
	}
	if p.End != nil {
		u.End = &p.End
	}
	if p.Units != nil {
		u.Units = &p.Units
	}
	if p.Room != nil {
		room := trimPtr(p.Room)
		u.Room = &room
	}
	if p.Instructor != nil {
		instructor := trimPtr(p.Instructor)
		u.Instructor = &instructor
	}
	if p.InstructorID != nil {
		u.InstructorID = &p.InstructorID
	}
	return u
}

func (p *classPayload) hasChanges() bool {
	return p.Title != nil || p.Code != nil || p.SectionID != nil || p.dayProvided ||
		p.Start != nil || p.End != nil || p.Units != nil || p.Room != nil ||
		p.Instructor != nil || p.InstructorID != nil
}

// validateTimeRange checks the effective start/end pair a patch produces.
func validateTimeRange(p classPayload, before *models.Class) error {
	start := before.Start
	if p.Start != nil {
		start = p.Start
	}
	end := before.End
	if p.End != nil {
		end = p.End
	}
	if start != nil && end != nil && *start >= *end {
		return validationError([]fieldIssue{{Path: "end", Message: "Start must be before end"}})
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// strictUnmarshal rejects unknown fields so typos surface as errors instead
// of silently dropped updates.
func strictUnmarshal(data []byte, v any) error {
	dec := newStrictDecoder(data)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
