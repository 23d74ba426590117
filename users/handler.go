// Package users implements account registration, login, profile management
// and the username existence probe. Every handler runs behind the gate
// checks assembled in the server route table.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/madisonwongtx/producktive/hr"
	"github.com/madisonwongtx/producktive/mail"
	"github.com/madisonwongtx/producktive/session"
	"github.com/madisonwongtx/producktive/store"
)

const startingHealth = 100

type Handler struct {
	store    store.Store
	sessions *session.Manager
	mailer   *mail.Mailer
}

func New(store store.Store, sessions *session.Manager, mailer *mail.Mailer) *Handler {
	return &Handler{store: store, sessions: sessions, mailer: mailer}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Period   string `json:"notificationPeriod"`
}

// Register creates the account and its pet. The gate has already verified
// field formats, uniqueness and the logged-out state.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) *hr.Error {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return hr.BadRequest(err, "malformed request body", "decoding register request")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return hr.BadRequest(nil, "username, email, and password are required", "missing register fields")
	}
	if req.Period == "" {
		req.Period = store.PeriodNone
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return hr.Internal(err, "hashing password")
	}

	now := time.Now()
	user := &store.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Period:       req.Period,
		CreatedAt:    now,
	}
	if err := h.store.CreateUser(user); err != nil {
		return hr.Internal(err, "creating user")
	}

	pet := &store.Pet{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Health:    startingHealth,
		LastFed:   now,
		ItemsOn:   []string{},
		CreatedAt: now,
	}
	if err := h.store.CreatePet(pet); err != nil {
		return hr.Internal(err, "creating pet")
	}

	if err := h.mailer.SendWelcome(user.Email, user.Username); err != nil {
		slog.Error("error sending welcome mail", "err", err)
	}

	return hr.WriteJSON(w, http.StatusCreated, user)
}

// Login sets the session cookie. The gate's credential check has already
// matched the account; the lookup here fetches it for the session record.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) *hr.Error {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return hr.BadRequest(err, "malformed request body", "decoding login request")
	}

	user, err := h.store.UserByEmail(req.Email)
	if err != nil {
		return hr.Internal(err, "looking up login user")
	}
	if _, err := h.sessions.Create(w, user.ID); err != nil {
		return hr.Internal(err, "creating session")
	}
	return hr.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return hr.Forbidden(errors.New("no session on context"), "logout without session")
	}
	if err := h.sessions.Invalidate(sess.ID); err != nil {
		return hr.Internal(err, "invalidating session")
	}
	h.sessions.ClearCookie(w)
	return hr.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())
	user, err := h.store.UserByID(sess.UserID)
	if err != nil {
		return hr.Internal(err, "looking up session user")
	}
	return hr.WriteJSON(w, http.StatusOK, user)
}

type updateRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Period   *string `json:"notificationPeriod"`
}

// Update applies the profile fields present in the body. Formats and
// uniqueness were checked by the gate; absent fields keep their values.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())
	user, err := h.store.UserByID(sess.UserID)
	if err != nil {
		return hr.Internal(err, "looking up session user")
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return hr.BadRequest(err, "malformed request body", "decoding update request")
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Period != nil {
		user.Period = *req.Period
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return hr.Internal(err, "hashing password")
		}
		user.PasswordHash = string(hash)
	}

	if err := h.store.UpdateUser(user); err != nil {
		return hr.Internal(err, "updating user")
	}
	return hr.WriteJSON(w, http.StatusOK, user)
}

// Delete removes the account, its pet, lists, items, and the current
// session. Sessions held by other clients are left behind on purpose; the
// gate's stale-user check clears them on their next request.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())
	user, err := h.store.UserByID(sess.UserID)
	if err != nil {
		return hr.Internal(err, "looking up session user")
	}

	lists, err := h.store.ListsByUser(user.ID)
	if err != nil {
		return hr.Internal(err, "listing lists for delete")
	}
	for _, list := range lists {
		if err := h.store.DeleteList(list.ID); err != nil {
			return hr.Internal(err, "deleting list")
		}
	}

	items, err := h.store.ItemsByUser(user.ID)
	if err != nil {
		return hr.Internal(err, "listing items for delete")
	}
	for _, item := range items {
		if err := h.store.DeleteItem(item.ID); err != nil {
			return hr.Internal(err, "deleting item")
		}
	}

	if err := h.store.DeletePetByUser(user.ID); err != nil {
		return hr.Internal(err, "deleting pet")
	}
	if err := h.store.DeleteUser(user.ID); err != nil {
		return hr.Internal(err, "deleting user")
	}
	if err := h.sessions.Invalidate(sess.ID); err != nil {
		return hr.Internal(err, "invalidating session")
	}
	h.sessions.ClearCookie(w)

	if err := h.mailer.SendGoodbye(user.Email, user.Username); err != nil {
		slog.Error("error sending goodbye mail", "err", err)
	}

	return hr.WriteJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("deleted %s", user.Username)})
}

// Exists answers the username probe. The gate already confirmed the user
// exists, so this only echoes the public fields.
func (h *Handler) Exists(w http.ResponseWriter, r *http.Request) *hr.Error {
	username := r.URL.Query().Get("username")
	user, err := h.store.UserByUsername(username)
	if err != nil {
		return hr.Internal(err, "looking up probed user")
	}
	return hr.WriteJSON(w, http.StatusOK, map[string]string{"username": user.Username, "id": user.ID})
}
