// Package auth handles admin session tokens: minting and verifying the
// signed session JWT carried in a cookie, plus password hashing for the
// login endpoint.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/class-scheduler/scheduler-backend/internal/config"
)

const (
	defaultSessionTTL = 12 * time.Hour
	defaultCookieName = "sched_session"
	sessionIssuer     = "class-scheduler"
)

// Claims is the session JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies session tokens with a shared secret.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
}

// NewSessionManager validates the configured secret. Outside debug mode a
// missing secret is a startup error; in debug mode a random per-process
// secret is generated and a warning logged, which means sessions do not
// survive restarts.
func NewSessionManager(cfg config.AuthConfig) (*SessionManager, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		if gin.Mode() != gin.DebugMode {
			return nil, errors.New("auth: session_secret is required; generate one with: openssl rand -hex 32")
		}
		secret = generateRandomSecret()
		slog.Warn("session_secret not set, using auto-generated secret; sessions will not persist across restarts")
	}
	if len(secret) < 32 {
		slog.Warn("session_secret is shorter than the recommended 32 characters")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	name := cfg.CookieName
	if name == "" {
		name = defaultCookieName
	}

	return &SessionManager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: name,
		secure:     cfg.CookieSecure,
	}, nil
}

// generateRandomSecret creates a cryptographically secure random secret.
func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less secure but functional secret
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// Generate mints a signed session token for an authenticated admin.
func (m *SessionManager) Generate(userID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    sessionIssuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a session token.
func (m *SessionManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

// CookieName reports the session cookie name.
func (m *SessionManager) CookieName() string {
	return m.cookieName
}

// SetCookie attaches the session token to the response.
func (m *SessionManager) SetCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
}

// ClearCookie expires the session cookie.
func (m *SessionManager) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
