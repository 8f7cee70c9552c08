// Package api wires together the HTTP routes of the scheduler backend.
//
// Route grouping philosophy:
//   - /healthz is unauthenticated so load balancers can probe liveness.
//   - /api/auth/login and /api/auth/logout run behind the origin and rate
//     stages only, since they establish rather than require identity.
//   - Everything else under /api/ goes through the full guard pipeline:
//     origin (mutations), rate limit (mutations), admin authorization (all).
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/class-scheduler/scheduler-backend/internal/api/admin"
	"github.com/class-scheduler/scheduler-backend/internal/audit"
	"github.com/class-scheduler/scheduler-backend/internal/auth"
	"github.com/class-scheduler/scheduler-backend/internal/config"
	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
	"github.com/class-scheduler/scheduler-backend/internal/telemetry"
)

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, db *sqlx.DB, counter guard.Counter) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), metricsMiddleware())

	// Repositories
	auditRepo := repositories.NewAuditRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	adminRepo := repositories.NewAdminRepository(db)
	classRepo := repositories.NewClassRepository(db)
	sectionRepo := repositories.NewSectionRepository(db)
	semesterRepo := repositories.NewSemesterRepository(db)
	instructorRepo := repositories.NewInstructorRepository(db)

	// Sessions and the guard pipeline
	sessions, err := auth.NewSessionManager(cfg.Auth)
	if err != nil {
		return nil, err
	}
	recorder := audit.NewRecorder(db, cfg.Audit.SuppressionWindow)

	g := guard.New(guard.Deps{
		Identity:       auth.NewSessionIdentity(sessions),
		Admins:         adminRepo,
		Counter:        counter,
		Auditor:        recorder,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateWindow:     cfg.Guard.RateWindow,
		RateLimit:      cfg.Guard.RateLimit,
		AuditEnabled:   cfg.Audit.Enabled,
	})

	// Handlers
	authHandlers := admin.NewAuthHandlers(g, sessions, profileRepo, adminRepo)
	auditHandlers := admin.NewAuditHandlers(g, auditRepo, profileRepo, cfg.Audit.DedupGranularity)
	classHandlers := admin.NewClassHandlers(g, classRepo)
	sectionHandlers := admin.NewSectionHandlers(g, sectionRepo)
	semesterHandlers := admin.NewSemesterHandlers(g, semesterRepo)
	instructorHandlers := admin.NewInstructorHandlers(g, instructorRepo)
	userHandlers := admin.NewUserHandlers(g, profileRepo)
	adminHandlers := admin.NewAdminMembershipHandlers(g, adminRepo, profileRepo)

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandlers.LoginHandler())
		api.POST("/auth/logout", authHandlers.LogoutHandler())
		api.GET("/auth/me", authHandlers.MeHandler())

		api.GET("/audit", auditHandlers.QueryHandler())
		api.DELETE("/audit", auditHandlers.ResetHandler())

		api.GET("/classes", classHandlers.ListHandler())
		api.POST("/classes", classHandlers.CreateHandler())
		api.POST("/classes/bulk-delete", classHandlers.BulkDeleteHandler())
		api.GET("/classes/:id", classHandlers.GetHandler())
		api.PATCH("/classes/:id", classHandlers.UpdateHandler())
		api.DELETE("/classes/:id", classHandlers.DeleteHandler())

		api.GET("/sections", sectionHandlers.ListHandler())
		api.POST("/sections", sectionHandlers.CreateHandler())
		api.PUT("/sections/:id", sectionHandlers.UpdateHandler())
		api.DELETE("/sections/:id", sectionHandlers.DeleteHandler())

		api.GET("/semesters", semesterHandlers.ListHandler())
		api.POST("/semesters", semesterHandlers.CreateHandler())
		api.PUT("/semesters/:id", semesterHandlers.UpdateHandler())
		api.DELETE("/semesters/:id", semesterHandlers.DeleteHandler())

		api.GET("/instructors", instructorHandlers.ListHandler())
		api.POST("/instructors", instructorHandlers.CreateHandler())
		api.PUT("/instructors/:id", instructorHandlers.UpdateHandler())
		api.DELETE("/instructors/:id", instructorHandlers.DeleteHandler())

		api.GET("/users", userHandlers.ListHandler())
		api.POST("/users", userHandlers.CreateHandler())
		api.PATCH("/users/:id", userHandlers.UpdateHandler())
		api.DELETE("/users/:id", userHandlers.DeleteHandler())

		api.GET("/admins", adminHandlers.ListHandler())
		api.POST("/admins", adminHandlers.AddHandler())
		api.DELETE("/admins/:id", adminHandlers.RemoveHandler())
	}

	return router, nil
}

// metricsMiddleware records request counts and latencies per route. The
// route template, not the raw path, is the label so ids do not explode the
// cardinality.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		telemetry.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
