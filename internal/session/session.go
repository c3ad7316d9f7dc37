// Package session stores the web login in a client-held, server-signed cookie.
// Nothing is tracked server-side; the cookie lifetime bounds the session.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// DefaultCookieName matches the cookie name browsers already hold for the web UI.
const DefaultCookieName = "session"

// DefaultMaxAge is how long a signed session stays acceptable.
const DefaultMaxAge = 14 * 24 * time.Hour

// ErrMissingSecret is returned by NewManager without a signing key.
var ErrMissingSecret = errors.New("session secret is empty")

// Config holds session cookie settings.
type Config struct {
	Secret     []byte
	CookieName string
	MaxAge     time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// payload is the signed cookie content. It holds at most a user id.
type payload struct {
	UserID int64 `json:"user_id,omitempty"`
}

// Manager reads and writes the signed session cookie.
type Manager struct {
	codec  *securecookie.SecureCookie
	name   string
	maxAge time.Duration
	secure bool
}

// NewManager creates a Manager signing cookies with cfg.Secret.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	// Signed, not encrypted: the payload is only a user id.
	codec := securecookie.New(cfg.Secret, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(maxAge.Seconds()))

	return &Manager{
		codec:  codec,
		name:   name,
		maxAge: maxAge,
		secure: cfg.Secure,
	}, nil
}

// UserID returns the user id stored in the request's session.
// A missing, tampered, or expired cookie reports ok == false.
func (m *Manager) UserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return 0, false
	}

	var p payload
	if err := m.codec.Decode(m.name, c.Value, &p); err != nil {
		return 0, false
	}
	if p.UserID <= 0 {
		return 0, false
	}
	return p.UserID, true
}

// Save establishes a session for userID.
func (m *Manager) Save(w http.ResponseWriter, userID int64) error {
	value, err := m.codec.Encode(m.name, payload{UserID: userID})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		Expires:  time.Now().Add(m.maxAge),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
