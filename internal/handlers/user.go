package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"manifestun/internal/middleware"
	"manifestun/internal/store"
)

type UserHandler struct {
	store store.Store
}

func NewUserHandler(st store.Store) *UserHandler {
	return &UserHandler{store: st}
}

// GetMe returns the current user's profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	profile, err := h.store.GetUserByWhopID(r.Context(), session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to fetch profile", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ToUserDTO(profile))
}

// UpdateMe updates provided fields on the current user's profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ctx := r.Context()

	var body struct {
		DisplayName *string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	profile, err := h.store.GetUserByWhopID(ctx, session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to update profile", err.Error())
		return
	}

	if body.DisplayName != nil {
		name := strings.TrimSpace(*body.DisplayName)
		if name == "" {
			writeError(w, http.StatusBadRequest, "Display name must not be empty")
			return
		}
		if err := h.store.UpdateDisplayName(ctx, profile.ID, name); err != nil {
			writeErrorDetails(w, http.StatusInternalServerError, "Failed to update profile", err.Error())
			return
		}
		profile.DisplayName = &name
	}

	writeJSON(w, http.StatusOK, ToUserDTO(profile))
}
