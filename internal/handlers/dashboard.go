package handlers

import (
	"errors"
	"net/http"

	"manifestun/internal/middleware"
	"manifestun/internal/store"
)

type DashboardHandler struct {
	store store.Store
}

func NewDashboardHandler(st store.Store) *DashboardHandler {
	return &DashboardHandler{store: st}
}

type dashboardResponse struct {
	CurrentPhase            int    `json:"current_phase"`
	Level                   string `json:"level"`
	JournalStreak           int    `json:"journal_streak"`
	SignalStrengthScore     int    `json:"signal_strength_score"`
	TotalJournalEntries     int    `json:"total_journal_entries"`
	EntriesThisWeek         int    `json:"entries_this_week"`
	CompletedInCurrentPhase int    `json:"completed_in_current_phase"`
}

// Get aggregates the numbers that power the home view.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ctx := r.Context()

	profile, err := h.store.GetUserByWhopID(ctx, session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to fetch dashboard", err.Error())
		return
	}

	stats, err := h.store.GetDashboardStats(ctx, profile.ID, profile.CurrentPhase)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to fetch dashboard", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		CurrentPhase:            profile.CurrentPhase,
		Level:                   profile.Level,
		JournalStreak:           profile.JournalStreak,
		SignalStrengthScore:     profile.SignalStrengthScore,
		TotalJournalEntries:     stats.TotalEntries,
		EntriesThisWeek:         stats.EntriesThisWeek,
		CompletedInCurrentPhase: stats.CompletedInCurrentPhase,
	})
}
