// instructors.go implements handlers for the instructor directory.
package admin

import (
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

type instructorPayload struct {
	FullName   *string `json:"full_name"`
	Email      *string `json:"email"`
	Title      *string `json:"title"`
	Department *string `json:"department"`
	AvatarURL  *string `json:"avatar_url"`
}

func (p *instructorPayload) validate() []fieldIssue {
	var issues []fieldIssue
	if p.FullName == nil || strings.TrimSpace(*p.FullName) == "" {
		issues = append(issues, fieldIssue{Path: "full_name", Message: "Full name is required"})
	} else if len(strings.TrimSpace(*p.FullName)) > 160 {
		issues = append(issues, fieldIssue{Path: "full_name", Message: "Max 160 characters"})
	}
	if p.Email != nil && strings.TrimSpace(*p.Email) != "" {
		if _, err := mail.ParseAddress(strings.TrimSpace(*p.Email)); err != nil {
			issues = append(issues, fieldIssue{Path: "email", Message: "Invalid email address"})
		}
	}
	if p.Title != nil && len(strings.TrimSpace(*p.Title)) > 120 {
		issues = append(issues, fieldIssue{Path: "title", Message: "Max 120 characters"})
	}
	if p.Department != nil && len(strings.TrimSpace(*p.Department)) > 160 {
		issues = append(issues, fieldIssue{Path: "department", Message: "Max 160 characters"})
	}
	if p.AvatarURL != nil && strings.TrimSpace(*p.AvatarURL) != "" {
		u, err := url.Parse(strings.TrimSpace(*p.AvatarURL))
		if err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, fieldIssue{Path: "avatar_url", Message: "Avatar URL must be valid"})
		}
	}
	return issues
}

func (p *instructorPayload) toInstructor() *models.Instructor {
	in := &models.Instructor{}
	if p.FullName != nil {
		in.FullName = strings.TrimSpace(*p.FullName)
	}
	in.Email = trimPtr(p.Email)
	in.Title = trimPtr(p.Title)
	in.Department = trimPtr(p.Department)
	in.AvatarURL = trimPtr(p.AvatarURL)
	return in
}

// InstructorHandlers handles instructor endpoints.
type InstructorHandlers struct {
	guard          *guard.Guard
	instructorRepo *repositories.InstructorRepository
}

// NewInstructorHandlers creates a new InstructorHandlers instance.
func NewInstructorHandlers(g *guard.Guard, instructorRepo *repositories.InstructorRepository) *InstructorHandlers {
	return &InstructorHandlers{guard: g, instructorRepo: instructorRepo}
}

// ListHandler serves GET /api/instructors.
func (h *InstructorHandlers) ListHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		rows, err := h.instructorRepo.List(c.Request.Context(), repositories.InstructorQuery{
			Search:    repositories.SanitizeSearchTerm(c.Query("search")),
			Sort:      c.Query("sort"),
			Direction: c.Query("direction"),
		})
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_instructors")
		}
		helpers.JSON(rows)
		return nil
	})
}

// CreateHandler serves POST /api/instructors.
func (h *InstructorHandlers) CreateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var payload instructorPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(); len(issues) > 0 {
			return validationError(issues)
		}

		row, err := h.instructorRepo.Create(c.Request.Context(), payload.toInstructor())
		if err != nil {
			if mapped := mapDatabaseError(err, "An instructor with this information already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_create_instructor")
		}

		helpers.Audit(guard.AuditEntry{Table: "instructors", Action: "insert", RowID: row.ID, Details: row})
		helpers.JSON(row, http.StatusCreated)
		return nil
	})
}

// UpdateHandler serves PUT /api/instructors/:id.
func (h *InstructorHandlers) UpdateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseInstructorID(c.Param("id"))
		if err != nil {
			return err
		}

		var payload instructorPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(); len(issues) > 0 {
			return validationError(issues)
		}

		before, err := h.instructorRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_update_instructor")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "instructor_not_found", "Instructor not found")
		}

		row, err := h.instructorRepo.Update(c.Request.Context(), id, payload.toInstructor())
		if err != nil {
			if mapped := mapDatabaseError(err, "An instructor with this information already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_update_instructor")
		}
		if row == nil {
			return httperror.WithDetails(http.StatusNotFound, "instructor_not_found", "Instructor not found")
		}

		helpers.Audit(guard.AuditEntry{Table: "instructors", Action: "update", RowID: id, Before: before, After: row})
		helpers.JSON(row)
		return nil
	})
}

// DeleteHandler serves DELETE /api/instructors/:id.
func (h *InstructorHandlers) DeleteHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseInstructorID(c.Param("id"))
		if err != nil {
			return err
		}

		before, err := h.instructorRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_instructor")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "instructor_not_found", "Instructor not found")
		}

		if _, err := h.instructorRepo.Delete(c.Request.Context(), id); err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_instructor")
		}

		helpers.Audit(guard.AuditEntry{Table: "instructors", Action: "delete", RowID: id, Before: before})
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}

func parseInstructorID(raw string) (string, error) {
	if _, err := uuid.Parse(raw); err != nil {
		return "", httperror.WithDetails(http.StatusBadRequest, "invalid_instructor_id",
			"Instructor id must be a valid UUID")
	}
	return raw, nil
}
