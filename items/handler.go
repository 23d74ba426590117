// Package items records purchases made for the pet.
package items

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
	items, err := h.store.ItemsByUser(sess.UserID)
	if err != nil {
		return hr.Internal(err, "listing items")
	}
	return hr.WriteJSON(w, http.StatusOK, items)
}

type createRequest struct {
	Type       string          `json:"type"`
	Identifier string          `json:"identifier"`
	Properties json.RawMessage `json:"properties"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return hr.BadRequest(err, "malformed request body", "decoding create item request")
	}
	if req.Type == "" {
		return hr.BadRequest(nil, map[string]string{"type": "type is required"}, "missing item type")
	}
	if req.Identifier == "" {
		return hr.BadRequest(nil, map[string]string{"identifier": "identifier is required"}, "missing item identifier")
	}

	item := &store.Item{
		ID:          uuid.NewString(),
		UserID:      sess.UserID,
		Type:        req.Type,
		Identifier:  req.Identifier,
		Properties:  string(req.Properties),
		PurchasedAt: time.Now(),
	}
	if err := h.store.CreateItem(item); err != nil {
		return hr.Internal(err, "creating item")
	}
	return hr.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, _ := session.FromContext(r.Context())

	item, err := h.store.ItemByID(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		return hr.NotFound(err, "item not found", "looking up item")
	}
	if err != nil {
		return hr.Internal(err, "looking up item")
	}
	if item.UserID != sess.UserID {
		return hr.NotFound(nil, "item not found", "item owned by another user")
	}

	if err := h.store.DeleteItem(item.ID); err != nil {
		return hr.Internal(err, "deleting item")
	}
	return hr.WriteJSON(w, http.StatusOK, map[string]string{"deleted": item.ID})
}
