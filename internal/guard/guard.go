// Package guard implements the request guard pipeline applied to every
// administrative API handler: same-origin validation, rate limiting, and
// admin authorization run in a fixed order before the business handler, and
// every response, success or error, leaves with the same security headers.
//
// The stage order is deliberate: origin and rate checks are cheap and need no
// database round-trip, so a forged or flooding caller is rejected before any
// identity work happens.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/class-scheduler/scheduler-backend/internal/audit"
	"github.com/class-scheduler/scheduler-backend/internal/httperror"
	"github.com/class-scheduler/scheduler-backend/internal/telemetry"
)

// Auditor is the audit writer consumed by the pipeline and by handler
// helpers. Implementations must be fire-and-forget; the guard never inspects
// a write outcome.
type Auditor interface {
	Record(ctx context.Context, actorID, table, action string, rowID any, opts *audit.Options)
	RecordError(ctx context.Context, actorID, table, message string, details any)
}

// Guard holds the process-lifetime collaborators of the pipeline. All
// dependencies are injected once at startup; nothing here reaches for
// ambient global state.
type Guard struct {
	identity          IdentityProvider
	admins            AdminStore
	counter           Counter
	auditor           Auditor
	allowedOrigins    []string
	defaultRateWindow time.Duration
	defaultRateLimit  int
	auditEnabled      bool
}

// Deps bundles Guard construction parameters.
type Deps struct {
	Identity       IdentityProvider
	Admins         AdminStore
	Counter        Counter
	Auditor        Auditor
	AllowedOrigins []string
	RateWindow     time.Duration
	RateLimit      int
	AuditEnabled   bool
}

// New constructs the pipeline.
func New(deps Deps) *Guard {
	window := deps.RateWindow
	if window <= 0 {
		window = 15 * time.Second
	}
	limit := deps.RateLimit
	if limit <= 0 {
		limit = 20
	}
	return &Guard{
		identity:          deps.Identity,
		admins:            deps.Admins,
		counter:           deps.Counter,
		auditor:           deps.Auditor,
		allowedOrigins:    deps.AllowedOrigins,
		defaultRateWindow: window,
		defaultRateLimit:  limit,
		auditEnabled:      deps.AuditEnabled,
	}
}

// RateConfig is a per-route throttle budget. Zero fields fall back to the
// guard-wide defaults.
type RateConfig struct {
	Window time.Duration
	Limit  int
}

// Options is the declarative per-route guard configuration.
type Options struct {
	// Roles that may pass authorization. Nil defaults to {"admin"}; only
	// "admin" is supported, and naming any other role is a configuration
	// error surfaced as a 500 at request time.
	Roles []string
	// Origin enables the same-origin check.
	Origin bool
	// Rate enables rate limiting with the given budget.
	Rate *RateConfig
	// Audit enables the audit helpers and ≥500 error trail for this route.
	Audit bool
}

// AuditEntry is the mutation record handlers emit through Helpers.Audit.
type AuditEntry struct {
	Table   string
	Action  string // insert | update | delete
	RowID   any
	Details any
	Before  any
	After   any
}

// Helpers is what a guarded handler receives alongside the request: the
// resolved admin, a uniform JSON responder, and audit emitters that are
// no-ops unless auditing is enabled for the route.
type Helpers struct {
	Admin *AdminUser

	guard   *Guard
	ctx     *gin.Context
	auditOn bool
}

// JSON writes a JSON response. Status defaults to 200.
func (h *Helpers) JSON(data any, status ...int) {
	code := http.StatusOK
	if len(status) > 0 {
		code = status[0]
	}
	h.ctx.JSON(code, data)
}

// Audit emits a mutation entry attributed to the resolved admin.
func (h *Helpers) Audit(entry AuditEntry) {
	if !h.auditOn || h.guard.auditor == nil {
		return
	}
	h.guard.auditor.Record(h.ctx.Request.Context(), h.Admin.ID, entry.Table, entry.Action, entry.RowID, &audit.Options{
		Details: entry.Details,
		Before:  entry.Before,
		After:   entry.After,
	})
}

// AuditError emits an error entry attributed to the resolved admin.
func (h *Helpers) AuditError(table, message string, details any) {
	if !h.auditOn || h.guard.auditor == nil {
		return
	}
	h.guard.auditor.RecordError(h.ctx.Request.Context(), h.Admin.ID, table, message, details)
}

// HandlerFunc is a guarded business handler. Returning an error short-
// circuits with its classification; writing a response and returning nil
// completes normally.
type HandlerFunc func(c *gin.Context, h *Helpers) error

// Wrap applies the pipeline around a business handler. Stages run strictly
// in sequence (origin, rate, authorization, handler) and short-circuit on
// the first failure.
func (g *Guard) Wrap(opts Options, handler HandlerFunc) gin.HandlerFunc {
	shouldAudit := opts.Audit && g.auditEnabled

	return func(c *gin.Context) {
		applySecurityHeaders(c)

		var admin *AdminUser
		err := func() error {
			if opts.Origin {
				if err := CheckSameOrigin(c.Request, g.allowedOrigins); err != nil {
					telemetry.GuardRejectionsTotal.WithLabelValues("origin").Inc()
					return err
				}
			}

			if opts.Rate != nil {
				if err := g.throttle(c.Request.Context(), ClientIP(c.Request), opts.Rate.Window, opts.Rate.Limit); err != nil {
					telemetry.GuardRejectionsTotal.WithLabelValues("rate").Inc()
					return err
				}
			}

			if err := validateRoles(opts.Roles); err != nil {
				return err
			}

			var authErr error
			admin, authErr = g.requireAdmin(c.Request.Context(), c.Request)
			if authErr != nil {
				telemetry.GuardRejectionsTotal.WithLabelValues("authz").Inc()
				return authErr
			}

			return handler(c, &Helpers{Admin: admin, guard: g, ctx: c, auditOn: shouldAudit})
		}()

		if err == nil {
			return
		}

		httpErr := classify(c, err)
		if shouldAudit && httpErr.Status >= 500 && g.auditor != nil {
			actor := "system"
			if admin != nil {
				actor = admin.ID
			}
			g.auditor.RecordError(c.Request.Context(), actor, "system", httpErr.Message, httpErr.Details)
		}

		c.AbortWithStatusJSON(httpErr.Status, httpErr.Body())
	}
}

// WrapPublic applies the origin and rate stages without authorization, for
// endpoints that establish identity rather than require it. Helpers.Admin is
// nil inside the handler and the audit helpers are unavailable.
func (g *Guard) WrapPublic(opts Options, handler HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		applySecurityHeaders(c)

		err := func() error {
			if opts.Origin {
				if err := CheckSameOrigin(c.Request, g.allowedOrigins); err != nil {
					telemetry.GuardRejectionsTotal.WithLabelValues("origin").Inc()
					return err
				}
			}

			if opts.Rate != nil {
				if err := g.throttle(c.Request.Context(), ClientIP(c.Request), opts.Rate.Window, opts.Rate.Limit); err != nil {
					telemetry.GuardRejectionsTotal.WithLabelValues("rate").Inc()
					return err
				}
			}

			return handler(c, &Helpers{guard: g, ctx: c})
		}()

		if err == nil {
			return
		}

		httpErr := classify(c, err)
		c.AbortWithStatusJSON(httpErr.Status, httpErr.Body())
	}
}

// validateRoles enforces the role configuration contract: nil defaults to
// admin, an explicitly empty list is a configuration error, and any role
// other than "admin" is unsupported.
func validateRoles(roles []string) error {
	if roles == nil {
		return nil
	}
	if len(roles) == 0 {
		return httperror.WithDetails(http.StatusInternalServerError, "invalid_guard_configuration",
			"guard requires at least one role")
	}
	var unsupported []string
	for _, role := range roles {
		if strings.ToLower(role) != "admin" {
			unsupported = append(unsupported, role)
		}
	}
	if len(unsupported) > 0 {
		return httperror.WithDetails(http.StatusInternalServerError, "unsupported_guard_role", map[string]any{
			"message": "Unsupported roles requested: " + strings.Join(unsupported, ", "),
		})
	}
	return nil
}

// classify normalizes any handler failure into an *httperror.Error. Raw
// internal errors are logged with request context and flattened so their
// messages never reach API consumers.
func classify(c *gin.Context, err error) *httperror.Error {
	if httpErr, ok := httperror.From(err); ok {
		return httpErr
	}
	slog.Error("unhandled API error",
		"route", c.Request.URL.Path,
		"method", c.Request.Method,
		"error", err,
	)
	return httperror.WithDetails(http.StatusInternalServerError, "internal_error", "Internal Server Error")
}

// applySecurityHeaders attaches the fixed response headers every guarded
// endpoint carries, success or error.
func applySecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Referrer-Policy", "same-origin")
}
