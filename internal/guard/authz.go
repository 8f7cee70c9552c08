package guard

import (
	"context"
	"net/http"

	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

// AdminUser is the authenticated principal for a guarded request. It lives
// only for the duration of one request.
type AdminUser struct {
	ID    string
	Email string
}

// IdentityProvider resolves the current identity from request-scoped state
// (session cookie). A nil user with a nil error means "no session".
type IdentityProvider interface {
	CurrentUser(ctx context.Context, r *http.Request) (*AdminUser, error)
}

// AdminStore answers membership lookups against the trusted admins set.
type AdminStore interface {
	ExistsAdmin(ctx context.Context, userID string) (bool, error)
}

// requireAdmin enforces that the caller is a signed-in admin: 401 when no
// identity resolves (or the identity check itself fails), 403 when the
// identity is not in the admins set.
func (g *Guard) requireAdmin(ctx context.Context, r *http.Request) (*AdminUser, error) {
	user, err := g.identity.CurrentUser(ctx, r)
	if err != nil || user == nil || user.ID == "" {
		return nil, httperror.New(http.StatusUnauthorized, "unauthorized")
	}

	// A failed membership lookup is treated as absence: the caller proved an
	// identity but not admin membership.
	ok, err := g.admins.ExistsAdmin(ctx, user.ID)
	if err != nil || !ok {
		return nil, httperror.New(http.StatusForbidden, "forbidden")
	}

	return user, nil
}
