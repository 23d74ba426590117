package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/madisonwongtx/producktive/cryptoutil"
	"github.com/madisonwongtx/producktive/store"
)

const (
	cookieName    = "session"
	oneDayInHours = 24
)

// Manager resolves the opaque session cookie to a stored session record.
// A user may hold several live sessions at once, one per client.
type Manager struct {
	store          store.Store
	expirationDays int64
	refreshDays    int64
	isProd         bool
}

func NewManager(store store.Store, expirationDays int64, refreshDays int64, isProd bool) *Manager {
	return &Manager{
		store:          store,
		expirationDays: expirationDays,
		refreshDays:    refreshDays,
		isProd:         isProd,
	}
}

func (m *Manager) newExpiresAt() int64 {
	return time.Now().Add(time.Duration(m.expirationDays) * oneDayInHours * time.Hour).Unix()
}

// Create issues a fresh token for userID, persists the session and sets the
// cookie on w.
func (m *Manager) Create(w http.ResponseWriter, userID string) (*store.Session, error) {
	token, err := cryptoutil.Random()
	if err != nil {
		return nil, err
	}

	sessionID := cryptoutil.ID(token)
	session, err := m.store.CreateSession(sessionID, userID, m.newExpiresAt())
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	m.setCookie(w, token, session.ExpiresAt)
	return session, nil
}

// Validate resolves a raw cookie token. Expired sessions are deleted and
// reported as (nil, nil); sessions inside the refresh window get their
// expiry extended.
func (m *Manager) Validate(token string) (*store.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("empty session token")
	}

	session, err := m.store.SessionByID(cryptoutil.ID(token))
	if err != nil {
		return nil, fmt.Errorf("error looking up session: %w", err)
	}

	now := time.Now()
	expiresAt := time.Unix(session.ExpiresAt, 0)

	if now.After(expiresAt) {
		if err := m.store.DeleteSession(session.ID); err != nil {
			return nil, fmt.Errorf("error deleting expired session: %w", err)
		}
		return nil, nil
	}

	threshold := expiresAt.Add(-time.Duration(m.refreshDays) * oneDayInHours * time.Hour)
	if now.After(threshold) {
		newExpiresAt := m.newExpiresAt()
		if err := m.store.RefreshSession(session.ID, newExpiresAt); err != nil {
			return nil, fmt.Errorf("error refreshing session: %w", err)
		}
		session.ExpiresAt = newExpiresAt
	}

	return session, nil
}

// Current returns the live session referenced by the request cookie, or nil
// when the request carries no usable session.
func (m *Manager) Current(r *http.Request) (*store.Session, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, nil
	}
	if cookie.Value == "" {
		return nil, nil
	}

	session, err := m.Validate(cookie.Value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error validating session token: %w", err)
	}
	return session, nil
}

func (m *Manager) Invalidate(sessionID string) error {
	return m.store.DeleteSession(sessionID)
}

func (m *Manager) InvalidateUser(userID string) error {
	return m.store.DeleteUserSessions(userID)
}

func (m *Manager) setCookie(w http.ResponseWriter, token string, expiresAt int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		Secure:   m.isProd,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(expiresAt, 0),
	})
}

// ClearCookie removes the session cookie from the client.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		Secure:   m.isProd,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
