// admins.go implements handlers for admin membership management. Membership
// is what the guard's authorization stage checks, so changes here take
// effect on the next request.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

// AdminMembershipHandlers handles admin membership endpoints.
type AdminMembershipHandlers struct {
	guard       *guard.Guard
	adminRepo   *repositories.AdminRepository
	profileRepo *repositories.ProfileRepository
}

// NewAdminMembershipHandlers creates a new AdminMembershipHandlers instance.
func NewAdminMembershipHandlers(g *guard.Guard, adminRepo *repositories.AdminRepository, profileRepo *repositories.ProfileRepository) *AdminMembershipHandlers {
	return &AdminMembershipHandlers{guard: g, adminRepo: adminRepo, profileRepo: profileRepo}
}

// ListHandler serves GET /api/admins.
func (h *AdminMembershipHandlers) ListHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		ids, err := h.adminRepo.ListAdminIDs(c.Request.Context())
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_admins")
		}
		profiles, err := h.profileRepo.GetByIDs(c.Request.Context(), ids)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_load_admins")
		}
		helpers.JSON(profiles)
		return nil
	})
}

// AddHandler serves POST /api/admins.
func (h *AdminMembershipHandlers) AddHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var body struct {
			UserID string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.UserID == "" {
			return validationError([]fieldIssue{{Path: "user_id", Message: "User id is required"}})
		}
		if _, err := parseUserID(body.UserID); err != nil {
			return err
		}

		profile, err := h.profileRepo.Get(c.Request.Context(), body.UserID)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_add_admin")
		}
		if profile == nil {
			return httperror.WithDetails(http.StatusNotFound, "user_not_found", "User not found")
		}

		if err := h.adminRepo.Add(c.Request.Context(), body.UserID); err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_add_admin")
		}

		helpers.Audit(guard.AuditEntry{Table: "admins", Action: "insert", RowID: body.UserID})
		helpers.JSON(gin.H{"ok": true}, http.StatusCreated)
		return nil
	})
}

// RemoveHandler serves DELETE /api/admins/:id.
func (h *AdminMembershipHandlers) RemoveHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{}, Audit: true}
	return h.guard.Wrap(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		id, err := parseUserID(c.Param("id"))
		if err != nil {
			return err
		}

		// Revoking your own membership locks you out of the dashboard.
		if helpers.Admin != nil && helpers.Admin.ID == id {
			return httperror.WithDetails(http.StatusUnprocessableEntity, "cannot_remove_self",
				"You cannot remove your own admin access")
		}

		removed, err := h.adminRepo.Remove(c.Request.Context(), id)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_remove_admin")
		}
		if !removed {
			return httperror.WithDetails(http.StatusNotFound, "admin_not_found", "Admin not found")
		}

		helpers.Audit(guard.AuditEntry{Table: "admins", Action: "delete", RowID: id})
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}
