// Package pets exposes the virtual pet owned by the session user. Health is
// clamped to [0, 100] on every mutation.
package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/madisonwongtx/producktive/hr"
	"github.com/madisonwongtx/producktive/session"
	"github.com/madisonwongtx/producktive/store"
)

const (
	minHealth  = 0
	maxHealth  = 100
	feedAmount = 10
)

type Handler struct {
	store store.Store
}

func New(store store.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) *hr.Error {
	pet, herr := h.ownPet(r)
	if herr != nil {
		return herr
	}
	return hr.WriteJSON(w, http.StatusOK, pet)
}

type updateRequest struct {
	Health  *int       `json:"health"`
	LastFed *time.Time `json:"lastFed"`
	ItemsOn *[]string  `json:"itemsOn"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) *hr.Error {
	pet, herr := h.ownPet(r)
	if herr != nil {
		return herr
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return hr.BadRequest(err, "malformed request body", "decoding update pet request")
	}

	if req.Health != nil {
		pet.Health = clamp(*req.Health)
	}
	if req.LastFed != nil {
		pet.LastFed = *req.LastFed
	}
	if req.ItemsOn != nil {
		pet.ItemsOn = *req.ItemsOn
	}

	if err := h.store.UpdatePet(pet); err != nil {
		return hr.Internal(err, "updating pet")
	}
	return hr.WriteJSON(w, http.StatusOK, pet)
}

// Feed bumps health and stamps lastFed.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) *hr.Error {
	pet, herr := h.ownPet(r)
	if herr != nil {
		return herr
	}

	pet.Health = clamp(pet.Health + feedAmount)
	pet.LastFed = time.Now()

	if err := h.store.UpdatePet(pet); err != nil {
		return hr.Internal(err, "updating fed pet")
	}
	return hr.WriteJSON(w, http.StatusOK, pet)
}

func (h *Handler) ownPet(r *http.Request) (*store.Pet, *hr.Error) {
	sess, _ := session.FromContext(r.Context())
	pet, err := h.store.PetByUser(sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, hr.NotFound(err, "pet not found", "looking up pet")
	}
	if err != nil {
		return nil, hr.Internal(err, "looking up pet")
	}
	return pet, nil
}

func clamp(health int) int {
	if health < minHealth {
		return minHealth
	}
	if health > maxHealth {
		return maxHealth
	}
	return health
}
