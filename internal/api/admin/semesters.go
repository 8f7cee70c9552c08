// semesters.go implements handlers for academic term CRUD. Marking a
// semester active implicitly deactivates the others.
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

type semesterPayload struct {
	Code         *string `json:"code"`
	Name         *string `json:"name"`
	AcademicYear *string `json:"academic_year"`
	Term         *int    `json:"term"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	IsActive     *bool   `json:"is_active"`
}

func (p *semesterPayload) validate() []fieldIssue {
	var issues []fieldIssue
	if p.Code == nil || strings.TrimSpace(*p.Code) == "" {
		issues = append(issues, fieldIssue{Path: "code", Message: "Code is required"})
	} else if len(strings.TrimSpace(*p.Code)) > 40 {
		issues = append(issues, fieldIssue{Path: "code", Message: "Max 40 characters"})
	}
	if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		issues = append(issues, fieldIssue{Path: "name", Message: "Name is required"})
	} else if len(strings.TrimSpace(*p.Name)) > 100 {
		issues = append(issues, fieldIssue{Path: "name", Message: "Max 100 characters"})
	}
	if p.AcademicYear != nil && len(strings.TrimSpace(*p.AcademicYear)) > 20 {
		issues = append(issues, fieldIssue{Path: "academic_year", Message: "Max 20 characters"})
	}
	if p.Term != nil && (*p.Term < 1 || *p.Term > 3) {
		issues = append(issues, fieldIssue{Path: "term", Message: "Term must be between 1 and 3"})
	}
	if p.StartDate != nil && parseDate(*p.StartDate) == nil {
		issues = append(issues, fieldIssue{Path: "start_date", Message: "Invalid date"})
	}
	if p.EndDate != nil && parseDate(*p.EndDate) == nil {
		issues = append(issues, fieldIssue{Path: "end_date", Message: "Invalid date"})
	}
	return issues
}

func (p *semesterPayload) toSemester() *models.Semester {
	s := &models.Semester{}
	if p.Code != nil {
		s.Code = strings.TrimSpace(*p.Code)
	}
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	s.AcademicYear = trimPtr(p.AcademicYear)
	s.Term = p.Term
	if p.StartDate != nil {
		s.StartDate = parseDate(*p.StartDate)
	}
	if p.EndDate != nil {
		s.EndDate = parseDate(*p.EndDate)
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	return s
}

func parseDate(value string) *time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// SemesterHandlers handles semester endpoints.
type SemesterHandlers struct {
	guard        *guard.Guard
	semesterRepo *repositories.SemesterRepository
}

// NewSemesterHandlers creates a new SemesterHandlers instance.
func NewSemesterHandlers(g *guard.Guard, semesterRepo *repositories.SemesterRepository) *SemesterHandlers {
	return &SemesterHandlers{guard: g, semesterRepo: semesterRepo}
}

// ListHandler serves GET /api/semesters.
func (h *SemesterHandlers) ListHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		rows, err := h.semesterRepo.List(c.Request.Context(), c.Query("active") == "true")
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_semesters")
		}
		helpers.JSON(rows)
		return nil
	})
}

// CreateHandler serves POST /api/semesters.
func (h *SemesterHandlers) CreateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var payload semesterPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(); len(issues) > 0 {
			return validationError(issues)
		}

		row, err := h.semesterRepo.Create(c.Request.Context(), payload.toSemester())
		if err != nil {
			if mapped := mapDatabaseError(err, "Semester code already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_create_semester")
		}

		helpers.Audit(guard.AuditEntry{Table: "semesters", Action: "insert", RowID: row.ID, Details: row})
		helpers.JSON(row, http.StatusCreated)
		return nil
	})
}

// UpdateHandler serves PUT /api/semesters/:id.
func (h *SemesterHandlers) UpdateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseSemesterID(c.Param("id"))
		if err != nil {
			return err
		}

		var payload semesterPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(); len(issues) > 0 {
			return validationError(issues)
		}

		before, err := h.semesterRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_update_semester")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "semester_not_found", "Semester not found")
		}

		row, err := h.semesterRepo.Update(c.Request.Context(), id, payload.toSemester())
		if err != nil {
			if mapped := mapDatabaseError(err, "Semester code already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_update_semester")
		}
		if row == nil {
			return httperror.WithDetails(http.StatusNotFound, "semester_not_found", "Semester not found")
		}

		helpers.Audit(guard.AuditEntry{Table: "semesters", Action: "update", RowID: id, Before: before, After: row})
		helpers.JSON(row)
		return nil
	})
}

// DeleteHandler serves DELETE /api/semesters/:id.
func (h *SemesterHandlers) DeleteHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseSemesterID(c.Param("id"))
		if err != nil {
			return err
		}

		before, err := h.semesterRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_semester")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "semester_not_found", "Semester not found")
		}

		if _, err := h.semesterRepo.Delete(c.Request.Context(), id); err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_semester")
		}

		helpers.Audit(guard.AuditEntry{Table: "semesters", Action: "delete", RowID: id, Before: before})
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}

func parseSemesterID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, httperror.WithDetails(http.StatusBadRequest, "invalid_semester_id",
			"Semester id must be a positive integer")
	}
	return id, nil
}
