// auth.go implements the session endpoints. Login runs behind the origin
// and rate stages but not authorization, since it is how identity gets
// established in the first place; a deliberately uniform 401 hides whether
// the email exists.
package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/class-scheduler/scheduler-backend/internal/auth"
	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

// AuthHandlers handles login and logout.
type AuthHandlers struct {
	guard       *guard.Guard
	sessions    *auth.SessionManager
	profileRepo *repositories.ProfileRepository
	adminRepo   *repositories.AdminRepository
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(g *guard.Guard, sessions *auth.SessionManager, profileRepo *repositories.ProfileRepository, adminRepo *repositories.AdminRepository) *AuthHandlers {
	return &AuthHandlers{guard: g, sessions: sessions, profileRepo: profileRepo, adminRepo: adminRepo}
}

// LoginHandler serves POST /api/auth/login.
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	opts := guard.Options{Origin: true, Rate: &guard.RateConfig{Window: time.Minute, Limit: 10}}
	return h.guard.WrapPublic(opts, func(c *gin.Context, helpers *guard.Helpers) error {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			return httperror.WithDetails(http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		body.Email = strings.TrimSpace(body.Email)
		if body.Email == "" || body.Password == "" {
			return validationError([]fieldIssue{{Path: "email", Message: "Email and password are required"}})
		}

		invalid := httperror.WithDetails(http.StatusUnauthorized, "invalid_credentials",
			"Invalid email or password")

		profile, err := h.profileRepo.GetByEmail(c.Request.Context(), body.Email)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_sign_in")
		}
		if profile == nil || profile.PasswordHash == nil ||
			!auth.CheckPassword(*profile.PasswordHash, body.Password) {
			return invalid
		}
		if profile.Status != "active" {
			return invalid
		}

		// Only admins can open a dashboard session.
		isAdmin, err := h.adminRepo.ExistsAdmin(c.Request.Context(), profile.ID)
		if err != nil || !isAdmin {
			return invalid
		}

		email := ""
		if profile.Email != nil {
			email = *profile.Email
		}
		token, err := h.sessions.Generate(profile.ID, email)
		if err != nil {
			return httperror.New(http.StatusInternalServerError, "failed_to_sign_in")
		}
		h.sessions.SetCookie(c, token)

		// Best effort; a failed stamp never blocks the login.
		_ = h.profileRepo.TouchLastSignIn(c.Request.Context(), profile.ID, time.Now())

		helpers.JSON(gin.H{"ok": true, "user": profile})
		return nil
	})
}

// LogoutHandler serves POST /api/auth/logout.
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return h.guard.WrapPublic(guard.Options{Origin: true}, func(c *gin.Context, helpers *guard.Helpers) error {
		h.sessions.ClearCookie(c)
		helpers.JSON(gin.H{"ok": true})
		return nil
	})
}

// MeHandler serves GET /api/auth/me, returning the resolved admin.
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return h.guard.Wrap(guard.Options{}, func(c *gin.Context, helpers *guard.Helpers) error {
		helpers.JSON(gin.H{"id": helpers.Admin.ID, "email": helpers.Admin.Email})
		return nil
	})
}
