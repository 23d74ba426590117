package gate_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madisonwongtx/producktive/gate"
	"github.com/madisonwongtx/producktive/hr"
	"github.com/madisonwongtx/producktive/session"
)

// loginCookie issues a real session for user and returns its cookie.
func loginCookie(t *testing.T, sessions *session.Manager, userID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := sessions.Create(rec, userID)
	require.NoError(t, err)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}
	t.Fatal("expected a session cookie")
	return nil
}

func countingHandler(calls *int) hr.Handler {
	return func(w http.ResponseWriter, r *http.Request) *hr.Error {
		*calls++
		return hr.WriteJSON(w, http.StatusOK, map[string]string{"ok": "true"})
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestRejectionNeverReachesHandler(t *testing.T) {
	g, _, _ := newTestGate(t)

	calls := 0
	handler := g.Run([]gate.Check{g.CurrentUserExists, gate.LoggedIn}, countingHandler(&calls))

	req := httptest.NewRequest("GET", "/api/lists/all", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, calls, "handler must not run after a rejection")
}

func TestPassThroughInvokesHandlerOnce(t *testing.T) {
	g, s, sessions := newTestGate(t)
	user := createTestUser(t, s, "alice", "alice@example.com", "pw")
	cookie := loginCookie(t, sessions, user.ID)

	calls := 0
	var seenUserID string
	handler := g.Run([]gate.Check{g.CurrentUserExists, gate.LoggedIn},
		func(w http.ResponseWriter, r *http.Request) *hr.Error {
			calls++
			sess, ok := session.FromContext(r.Context())
			require.True(t, ok, "expected session on context")
			seenUserID = sess.UserID
			return hr.WriteJSON(w, http.StatusOK, map[string]string{"ok": "true"})
		})

	req := httptest.NewRequest("GET", "/api/lists/all", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, user.ID, seenUserID)
}

func TestStaleSessionClearedWith500(t *testing.T) {
	g, s, sessions := newTestGate(t)
	user := createTestUser(t, s, "alice", "alice@example.com", "pw")
	cookie := loginCookie(t, sessions, user.ID)

	// Account removed from another client; this cookie is now stale.
	require.NoError(t, s.DeleteUser(user.ID))

	calls := 0
	handler := g.Run([]gate.Check{g.CurrentUserExists, gate.LoggedIn}, countingHandler(&calls))

	req := httptest.NewRequest("GET", "/api/lists/all", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "user session not recognized", decodeError(t, rec))
	assert.Equal(t, 0, calls)

	// Session row gone and cookie expired on the client.
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected the session cookie to be cleared")

	req2 := httptest.NewRequest("GET", "/api/lists/all", nil)
	req2.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusForbidden, rec2.Code, "stale session should be gone on retry")
}

func TestMalformedBodyRejected(t *testing.T) {
	g, _, _ := newTestGate(t)

	calls := 0
	handler := g.Run([]gate.Check{gate.ValidUsername}, countingHandler(&calls))

	req := httptest.NewRequest("POST", "/api/users/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)
}

func TestBodyReadableByHandlerAfterChecks(t *testing.T) {
	g, _, _ := newTestGate(t)

	var seen string
	handler := g.Run([]gate.Check{gate.ValidUsername},
		func(w http.ResponseWriter, r *http.Request) *hr.Error {
			var body struct {
				Username string `json:"username"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			seen = body.Username
			return hr.WriteJSON(w, http.StatusOK, body)
		})

	req := httptest.NewRequest("POST", "/api/users/", strings.NewReader(`{"username":"alice_92"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice_92", seen, "handler must see the body the checks inspected")
}

func TestFirstFailingCheckDecidesResponse(t *testing.T) {
	g, _, _ := newTestGate(t)

	calls := 0
	handler := g.Run([]gate.Check{gate.ValidUsername, gate.LoggedIn}, countingHandler(&calls))

	req := httptest.NewRequest("POST", "/api/users/", strings.NewReader(`{"username":"bad name"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Both checks would fail; the earlier one picks the status.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)

	errBody, ok := decodeError(t, rec).(map[string]any)
	require.True(t, ok, "expected a field-keyed error body")
	assert.Contains(t, errBody, "username")
}
