package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_IDMissingCookie(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := sessions.ID(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_IDRejectsGarbage(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})

	_, err := sessions.ID(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_GetOrCreateMintsOnce(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(time.Hour, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	id := sessions.GetOrCreate(rec, req)
	require.NotEqual(t, uuid.Nil, id)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, id.String(), cookies[0].Value)

	// A follow-up request carrying the cookie keeps the same ID
	// and gets no fresh cookie.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/", nil)
	req2.AddCookie(cookies[0])
	assert.Equal(t, id, sessions.GetOrCreate(rec2, req2))
	assert.Empty(t, rec2.Result().Cookies())
}

func TestSessions_CookieAttributes(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(2*time.Hour, true)
	rec := httptest.NewRecorder()
	sessions.SetCookie(rec, uuid.New())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((2 * time.Hour).Seconds()), c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}
