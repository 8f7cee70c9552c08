package auth

import (
	"context"
	"net/http"

	"github.com/class-scheduler/scheduler-backend/internal/guard"
)

// SessionIdentity resolves the caller from the session cookie. A missing or
// invalid cookie yields a nil user with no error, which downstream
// authorization treats as unauthenticated.
type SessionIdentity struct {
	sessions *SessionManager
}

// NewSessionIdentity wires cookie-based identity resolution.
func NewSessionIdentity(sessions *SessionManager) *SessionIdentity {
	return &SessionIdentity{sessions: sessions}
}

// CurrentUser implements guard.IdentityProvider.
func (s *SessionIdentity) CurrentUser(_ context.Context, r *http.Request) (*guard.AdminUser, error) {
	cookie, err := r.Cookie(s.sessions.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	claims, err := s.sessions.Validate(cookie.Value)
	if err != nil {
		return nil, nil
	}

	return &guard.AdminUser{ID: claims.UserID, Email: claims.Email}, nil
}
