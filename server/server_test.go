package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madisonwongtx/producktive/server"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	srv, err := server.New(server.Config{
		Port:          0,
		Env:           "test",
		DBPath:        filepath.Join(t.TempDir(), "test.db"),
		AllowedOrigin: "http://localhost:3001",
	})
	require.NoError(t, err)
	return srv.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session" && cookie.MaxAge >= 0 {
			return cookie
		}
	}
	t.Fatal("expected a session cookie to be set")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const registerBob = `{"username":"bob","email":"bob@example.com","password":"quack42","notificationPeriod":"weekly"}`

func register(t *testing.T, handler http.Handler) {
	t.Helper()
	rec := doJSON(t, handler, "POST", "/api/users/", registerBob, nil)
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())
}

func login(t *testing.T, handler http.Handler) *http.Cookie {
	t.Helper()
	rec := doJSON(t, handler, "POST", "/api/users/login",
		`{"email":"bob@example.com","password":"quack42"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())
	return sessionCookie(t, rec)
}

func TestRegistrationValidation(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)

	// Same username again conflicts.
	rec := doJSON(t, handler, "POST", "/api/users/",
		`{"username":"bob","email":"other@example.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Bad username format.
	rec = doJSON(t, handler, "POST", "/api/users/",
		`{"username":"bad name!","email":"x@y.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad email format.
	rec = doJSON(t, handler, "POST", "/api/users/",
		`{"username":"newduck","email":"not-an-email","password":"pw"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)

	rec := doJSON(t, handler, "POST", "/api/users/login",
		`{"email":"bob@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid login credentials", decodeBody(t, rec)["error"])

	cookie := login(t, handler)
	assert.NotEmpty(t, cookie.Value)

	rec = doJSON(t, handler, "GET", "/api/users/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decodeBody(t, rec)["username"])
}

func TestLoginRequiredRoutes(t *testing.T) {
	handler := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/lists/all"},
		{"POST", "/api/lists/"},
		{"GET", "/api/items/all"},
		{"GET", "/api/pets/"},
		{"GET", "/api/users/me"},
		{"POST", "/api/users/logout"},
	} {
		rec := doJSON(t, handler, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestListLifecycle(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)
	cookie := login(t, handler)

	rec := doJSON(t, handler, "POST", "/api/lists/", `{"title":"Groceries"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	listID, _ := created["id"].(string)
	assert.NotEmpty(t, listID)
	assert.Equal(t, "Groceries", created["title"])

	rec = doJSON(t, handler, "GET", "/api/lists/all", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var lists []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lists))
	require.Len(t, lists, 1)
	assert.Equal(t, listID, lists[0]["id"])

	rec = doJSON(t, handler, "PATCH", "/api/lists/"+listID, `{"title":"Weekend Groceries"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Weekend Groceries", decodeBody(t, rec)["title"])

	rec = doJSON(t, handler, "DELETE", "/api/lists/"+listID, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, "GET", "/api/lists/all", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lists))
	assert.Empty(t, lists)
}

func TestProfileUpdateUniqueness(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)

	rec := doJSON(t, handler, "POST", "/api/users/",
		`{"username":"carol","email":"carol@example.com","password":"pw123"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	cookie := login(t, handler)

	// Resubmitting your own username passes.
	rec = doJSON(t, handler, "PATCH", "/api/users/", `{"username":"bob"}`, cookie)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Taking someone else's conflicts.
	rec = doJSON(t, handler, "PATCH", "/api/users/", `{"username":"carol"}`, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestItemsAndPet(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)
	cookie := login(t, handler)

	// Registration creates the pet at full health.
	rec := doJSON(t, handler, "GET", "/api/pets/", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(100), decodeBody(t, rec)["health"])

	rec = doJSON(t, handler, "POST", "/api/items/",
		`{"type":"hat","identifier":"top-hat","properties":{"color":"black"}}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	itemID, _ := decodeBody(t, rec)["id"].(string)
	assert.NotEmpty(t, itemID)

	rec = doJSON(t, handler, "PATCH", "/api/pets/", `{"itemsOn":["`+itemID+`"]}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, "GET", "/api/items/all", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)
}

func TestLogout(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)
	cookie := login(t, handler)

	rec := doJSON(t, handler, "POST", "/api/users/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, "GET", "/api/users/me", "", cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code, "session must be dead after logout")
}

func TestAccountDeleteLeavesOtherSessionStale(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)

	first := login(t, handler)
	second := login(t, handler)

	rec := doJSON(t, handler, "DELETE", "/api/users/", "", first)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The other client's session now references a vanished user.
	rec = doJSON(t, handler, "GET", "/api/users/me", "", second)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "user session not recognized", decodeBody(t, rec)["error"])

	// And it was cleared in the process.
	rec = doJSON(t, handler, "GET", "/api/users/me", "", second)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsernameProbe(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)

	rec := doJSON(t, handler, "GET", "/api/users/exists", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, "GET", "/api/users/exists?username=ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, "GET", "/api/users/exists?username=bob", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginWhileLoggedInForbidden(t *testing.T) {
	handler := newTestServer(t)
	register(t, handler)
	cookie := login(t, handler)

	rec := doJSON(t, handler, "POST", "/api/users/login",
		`{"email":"bob@example.com","password":"quack42"}`, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t)
	rec := doJSON(t, handler, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
