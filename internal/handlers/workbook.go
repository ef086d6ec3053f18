package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"manifestun/internal/middleware"
	"manifestun/internal/models"
	"manifestun/internal/store"
)

type WorkbookHandler struct {
	store store.Store
}

func NewWorkbookHandler(st store.Store) *WorkbookHandler {
	return &WorkbookHandler{store: st}
}

type saveProgressRequest struct {
	Phase       int            `json:"phase"`
	ExerciseKey string         `json:"exercise_key"`
	Data        models.JSONMap `json:"data"`
	Completed   bool           `json:"completed"`
}

// Save upserts one exercise's completion state, keyed by (user, phase,
// exercise). Completing the last exercise of the user's current phase
// unlocks the next one.
func (h *WorkbookHandler) Save(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ctx := r.Context()

	var req saveProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if req.Phase < 1 || req.Phase > 10 {
		writeError(w, http.StatusBadRequest, "Invalid phase (must be 1-10)")
		return
	}
	if strings.TrimSpace(req.ExerciseKey) == "" {
		writeError(w, http.StatusBadRequest, "Exercise key is required")
		return
	}

	profile, err := h.store.GetUserByWhopID(ctx, session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to save workbook progress", err.Error())
		return
	}

	data := req.Data
	if data == nil {
		data = models.JSONMap{}
	}
	saved, err := h.store.UpsertProgress(ctx, &models.WorkbookProgress{
		UserID:      profile.ID,
		Phase:       req.Phase,
		ExerciseKey: req.ExerciseKey,
		Data:        data,
		Completed:   req.Completed,
	})
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to save progress", err.Error())
		return
	}

	// Saves to a non-current phase never advance anything. The advance check
	// is a single conditional update in the store; a failure here does not
	// undo the save already reported below.
	currentPhase := profile.CurrentPhase
	if req.Completed && req.Phase == profile.CurrentPhase {
		advanced, err := h.store.AdvancePhase(ctx, profile.ID, req.Phase)
		if err != nil {
			slog.Error("phase advance check failed", slog.Any("err", err))
		} else if advanced {
			currentPhase = profile.CurrentPhase + 1
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":          saved,
		"current_phase": currentPhase,
	})
}

// List returns the user's progress rows, optionally filtered to one phase.
func (h *WorkbookHandler) List(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ctx := r.Context()

	profile, err := h.store.GetUserByWhopID(ctx, session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to fetch workbook progress", err.Error())
		return
	}

	phase := 0
	if s := r.URL.Query().Get("phase"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 10 {
			phase = n
		}
	}

	rows, err := h.store.ListProgress(ctx, profile.ID, phase)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to fetch progress", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":          rows,
		"current_phase": profile.CurrentPhase,
	})
}
