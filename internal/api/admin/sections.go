// sections.go implements handlers for section CRUD. Sections carry their
// non-archived class count in list responses.
package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

type sectionPayload struct {
	Code          *string `json:"code"`
	SectionNumber *string `json:"section_number"`
	SemesterID    *int64  `json:"semester_id"`
}

func (p *sectionPayload) validate() []fieldIssue {
	var issues []fieldIssue
	if p.Code == nil || strings.TrimSpace(*p.Code) == "" {
		issues = append(issues, fieldIssue{Path: "code", Message: "Code is required"})
	} else if len(strings.TrimSpace(*p.Code)) > 40 {
		issues = append(issues, fieldIssue{Path: "code", Message: "Max 40 characters"})
	}
	if p.SectionNumber != nil && len(strings.TrimSpace(*p.SectionNumber)) > 40 {
		issues = append(issues, fieldIssue{Path: "section_number", Message: "Max 40 characters"})
	}
	if p.SemesterID != nil && *p.SemesterID <= 0 {
		issues = append(issues, fieldIssue{Path: "semester_id", Message: "Semester id must be > 0"})
	}
	return issues
}

func (p *sectionPayload) toSection() *models.Section {
	return &models.Section{
		Code:          trimPtr(p.Code),
		SectionNumber: trimPtr(p.SectionNumber),
		SemesterID:    p.SemesterID,
	}
}

// SectionHandlers handles section endpoints.
type SectionHandlers struct {
	guard       *guard.Guard
	sectionRepo *repositories.SectionRepository
}

// NewSectionHandlers creates a new SectionHandlers instance.
func NewSectionHandlers(g *guard.Guard, sectionRepo *repositories.SectionRepository) *SectionHandlers {
	return &SectionHandlers{guard: g, sectionRepo: sectionRepo}
}

// ListHandler serves GET /api/sections.
func (h *SectionHandlers) ListHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		var semesterID *int64
		if raw := c.Query("semester_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return httperror.WithDetails(http.StatusBadRequest, "invalid_semester_id",
					"semester_id must be a positive integer")
			}
			semesterID = &id
		}

		rows, err := h.sectionRepo.List(c.Request.Context(), semesterID)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_sections")
		}
		helpers.JSON(rows)
		return nil
	})
}

// CreateHandler serves POST /api/sections.
func (h *SectionHandlers) CreateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var payload sectionPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(); len(issues) > 0 {
			return validationError(issues)
		}

		row, err := h.sectionRepo.Create(c.Request.Context(), payload.toSection())
		if err != nil {
			if mapped := mapDatabaseError(err, "Section code already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_create_section")
		}

		helpers.Audit(guard.AuditEntry{Table: "sections", Action: "insert", RowID: row.ID, Details: row})
		helpers.JSON(row, http.StatusCreated)
		return nil
	})
}

// UpdateHandler serves PUT /api/sections/:id.
func (h *SectionHandlers) UpdateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseSectionID(c.Param("id"))
		if err != nil {
			return err
		}

		var payload sectionPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(); len(issues) > 0 {
			return validationError(issues)
		}

		before, err := h.sectionRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_update_section")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "section_not_found", "Section not found")
		}

		row, err := h.sectionRepo.Update(c.Request.Context(), id, payload.toSection())
		if err != nil {
			if mapped := mapDatabaseError(err, "Section code already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_update_section")
		}
		if row == nil {
			return httperror.WithDetails(http.StatusNotFound, "section_not_found", "Section not found")
		}

		helpers.Audit(guard.AuditEntry{Table: "sections", Action: "update", RowID: id, Before: before, After: row})
		helpers.JSON(row)
		return nil
	})
}

// DeleteHandler serves DELETE /api/sections/:id.
func (h *SectionHandlers) DeleteHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseSectionID(c.Param("id"))
		if err != nil {
			return err
		}

		before, err := h.sectionRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_section")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "section_not_found", "Section not found")
		}

		if _, err := h.sectionRepo.Delete(c.Request.Context(), id); err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_section")
		}

		helpers.Audit(guard.AuditEntry{Table: "sections", Action: "delete", RowID: id, Before: before})
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}

func parseSectionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, httperror.WithDetails(http.StatusBadRequest, "invalid_section_id",
			"Section id must be a positive integer")
	}
	return id, nil
}
