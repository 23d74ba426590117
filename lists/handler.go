// Package lists implements todo-list CRUD for the session user.
package lists

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/madisonwongtx/producktive/hr"
	"github.com/madisonwongtx/producktive/session"
	"github.com/madisonwongtx/producktive/store"
)

type Handler struct {
	store store.Store
}

func New(store store.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) All(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())
	lists, err := h.store.ListsByUser(sess.UserID)
	if err != nil {
		return hr.Internal(err, "listing lists")
	}
	return hr.WriteJSON(w, http.StatusOK, lists)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return hr.BadRequest(err, "malformed request body", "decoding create list request")
	}
	if req.Title == "" {
		return hr.BadRequest(nil, map[string]string{"title": "title is required"}, "missing list title")
	}

	list := &store.List{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Title:     req.Title,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateList(list); err != nil {
		return hr.Internal(err, "creating list")
	}
	return hr.WriteJSON(w, http.StatusCreated, list)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())

	list, herr := h.ownedList(r.PathValue("id"), sess.UserID)
	if herr != nil {
		return herr
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return hr.BadRequest(err, "malformed request body", "decoding update list request")
	}
	if req.Title == "" {
		return hr.BadRequest(nil, map[string]string{"title": "title is required"}, "missing list title")
	}

	list.Title = req.Title
	if err := h.store.UpdateList(list); err != nil {
		return hr.Internal(err, "updating list")
	}
	return hr.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())

	list, herr := h.ownedList(r.PathValue("id"), sess.UserID)
	if herr != nil {
		return herr
	}

	if err := h.store.DeleteList(list.ID); err != nil {
		return hr.Internal(err, "deleting list")
	}
	return hr.WriteJSON(w, http.StatusOK, map[string]string{"deleted": list.ID})
}

// ownedList resolves id for userID. Lists owned by someone else read as not
// found so ids are not probeable across accounts.
func (h *Handler) ownedList(id, userID string) (*store.List, *hr.Error) {
	list, err := h.store.ListByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, hr.NotFound(err, "list not found", "looking up list")
	}
	if err != nil {
		return nil, hr.Internal(err, "looking up list")
	}
	if list.UserID != userID {
		return nil, hr.NotFound(nil, "list not found", "list owned by another user")
	}
	return list, nil
}
