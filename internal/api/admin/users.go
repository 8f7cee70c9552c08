// users.go implements handlers for account CRUD over profiles, including
// the registrar-facing listing with role and status filters.
package admin

import (
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/class-scheduler/scheduler-backend/internal/auth"
	"github.com/class-scheduler/scheduler-backend/internal/db/models"
	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

var (
	userRoles    = map[string]bool{"admin": true, "instructor": true, "student": true}
	userStatuses = map[string]bool{"active": true, "inactive": true, "suspended": true}
)

type userPayload struct {
	Email     *string `json:"email"`
	FullName  *string `json:"full_name"`
	StudentID *string `json:"student_id"`
	AvatarURL *string `json:"avatar_url"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
	Password  *string `json:"password"`
}

func (p *userPayload) validate(create bool) []fieldIssue {
	var issues []fieldIssue
	if create {
		if p.Email == nil || strings.TrimSpace(*p.Email) == "" {
			issues = append(issues, fieldIssue{Path: "email", Message: "Email is required"})
		}
	}
	if p.Email != nil && strings.TrimSpace(*p.Email) != "" {
		if _, err := mail.ParseAddress(strings.TrimSpace(*p.Email)); err != nil {
			issues = append(issues, fieldIssue{Path: "email", Message: "Invalid email address"})
		}
	}
	if p.FullName != nil && len(strings.TrimSpace(*p.FullName)) > 160 {
		issues = append(issues, fieldIssue{Path: "full_name", Message: "Max 160 characters"})
	}
	if p.Role != nil && !userRoles[*p.Role] {
		issues = append(issues, fieldIssue{Path: "role", Message: "Role must be admin, instructor, or student"})
	}
	if p.Status != nil && !userStatuses[*p.Status] {
		issues = append(issues, fieldIssue{Path: "status", Message: "Status must be active, inactive, or suspended"})
	}
	if p.Password != nil && len(*p.Password) < 8 {
		issues = append(issues, fieldIssue{Path: "password", Message: "Password must be at least 8 characters"})
	}
	return issues
}

// UserHandlers handles account management endpoints.
type UserHandlers struct {
	guard       *guard.Guard
	profileRepo *repositories.ProfileRepository
}

// NewUserHandlers creates a new UserHandlers instance.
func NewUserHandlers(g *guard.Guard, profileRepo *repositories.ProfileRepository) *UserHandlers {
	return &UserHandlers{guard: g, profileRepo: profileRepo}
}

// ListHandler serves GET /api/users.
func (h *UserHandlers) ListHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 200 {
			limit = 50
		}

		rows, total, err := h.profileRepo.List(c.Request.Context(), repositories.ProfileQuery{
			Search: repositories.SanitizeSearchTerm(c.Query("search")),
			Role:   c.Query("role"),
			Status: c.Query("status"),
			Sort:   c.Query("sort"),
			Limit:  limit,
			Offset: (page - 1) * limit,
		})
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_users")
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

// CreateHandler serves POST /api/users.
func (h *UserHandlers) CreateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var payload userPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(true); len(issues) > 0 {
			return validationError(issues)
		}

		profile := &models.Profile{
			Email:     trimPtr(payload.Email),
			FullName:  trimPtr(payload.FullName),
			StudentID: trimPtr(payload.StudentID),
			AvatarURL: trimPtr(payload.AvatarURL),
			Role:      "student",
			Status:    "active",
		}
		if payload.Role != nil {
			profile.Role = *payload.Role
		}
		if payload.Status != nil {
			profile.Status = *payload.Status
		}
		if payload.Password != nil {
			hash, err := auth.HashPassword(*payload.Password)
			if err != nil {
				return httperror.New(http.StatusInternalServerError, "failed_to_create_user")
			}
			profile.PasswordHash = &hash
		}

		row, err := h.profileRepo.Create(c.Request.Context(), profile)
		if err != nil {
			if mapped := mapDatabaseError(err, "A user with this email already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_create_user")
		}

		helpers.Audit(guard.AuditEntry{Table: "profiles", Action: "insert", RowID: row.ID, Details: row})
		helpers.JSON(row, http.StatusCreated)
		return nil
	})
}

// UpdateHandler serves PATCH /api/users/:id.
func (h *UserHandlers) UpdateHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseUserID(c.Param("id"))
		if err != nil {
			return err
		}

		var payload userPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		if issues := payload.validate(false); len(issues) > 0 {
			return validationError(issues)
		}

		before, err := h.profileRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_update_user")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "user_not_found", "User not found")
		}

		var update repositories.ProfileUpdate
		if payload.Email != nil {
			email := trimPtr(payload.Email)
			update.Email = &email
		}
		if payload.FullName != nil {
			name := trimPtr(payload.FullName)
			update.FullName = &name
		}
		if payload.StudentID != nil {
			sid := trimPtr(payload.StudentID)
			update.StudentID = &sid
		}
		if payload.AvatarURL != nil {
			avatar := trimPtr(payload.AvatarURL)
			update.AvatarURL = &avatar
		}
		update.Role = payload.Role
		update.Status = payload.Status

		row, err := h.profileRepo.Update(c.Request.Context(), id, update)
		if err != nil {
			if mapped := mapDatabaseError(err, "A user with this email already exists."); mapped != nil {
				return mapped
			}
			return httperror.New(http.StatusInternalServerError, "failed_to_update_user")
		}
		if row == nil {
			return httperror.WithDetails(http.StatusNotFound, "user_not_found", "User not found")
		}

		helpers.Audit(guard.AuditEntry{Table: "profiles", Action: "update", RowID: id, Before: before, After: row})
		helpers.JSON(row)
		return nil
	})
}

// DeleteHandler serves DELETE /api/users/:id.
func (h *UserHandlers) DeleteHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseUserID(c.Param("id"))
		if err != nil {
			return err
		}

		// Deleting yourself would orphan the session mid-request.
		if helpers.Admin != nil && helpers.Admin.ID == id {
			return httperror.WithDetails(http.StatusUnprocessableEntity, "cannot_delete_self",
				"You cannot delete your own account")
		}

		before, err := h.profileRepo.Get(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_user")
		}
		if before == nil {
			return httperror.WithDetails(http.StatusNotFound, "user_not_found", "User not found")
		}

		if _, err := h.profileRepo.Delete(c.Request.Context(), id); err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_delete_user")
		}

		helpers.Audit(guard.AuditEntry{Table: "profiles", Action: "delete", RowID: id, Before: before})
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}

func parseUserID(raw string) (string, error) {
	if _, err := uuid.Parse(raw); err != nil {
		return "", httperror.WithDetails(http.StatusBadRequest, "invalid_user_id",
			"User id must be a valid UUID")
	}
	return raw, nil
}
