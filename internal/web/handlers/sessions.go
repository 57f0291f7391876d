package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the session cookie carrying the session ID.
const CookieName = "askdocs_session"

// ErrNoSession indicates the request carries no usable session cookie.
var ErrNoSession = errors.New("no session")

// Sessions manages the session cookie. The cookie carries only a random
// UUID; the transcript itself lives server-side in the session store.
type Sessions struct {
	maxAge time.Duration
	secure bool
}

// NewSessions creates a session cookie manager. maxAge bounds the cookie
// lifetime and should match the server-side session TTL. secure=false allows
// plain-HTTP cookies for local development.
func NewSessions(maxAge time.Duration, secure bool) *Sessions {
	return &Sessions{
		maxAge: maxAge,
		secure: secure,
	}
}

// ID returns the session ID from the request cookie.
// Returns ErrNoSession when the cookie is absent or not a valid UUID.
func (s *Sessions) ID(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}
	return id, nil
}

// GetOrCreate returns the request's session ID, minting a new one and
// setting the cookie when the request has none. Sessions are created lazily:
// a visitor gets a cookie only once they interact.
func (s *Sessions) GetOrCreate(w http.ResponseWriter, r *http.Request) uuid.UUID {
	if id, err := s.ID(r); err == nil {
		return id
	}

	id := uuid.New()
	s.SetCookie(w, id)
	return id
}

// SetCookie writes the session cookie for id.
func (s *Sessions) SetCookie(w http.ResponseWriter, id uuid.UUID) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id.String(),
		Path:     "/",
		MaxAge:   int(s.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
