package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"manifestun/internal/models"
)

// UserDTO is the wire shape of a profile.
type UserDTO struct {
	ID                  string        `json:"id"`
	WhopUserID          string        `json:"whop_user_id"`
	Email               *string       `json:"email,omitempty"`
	DisplayName         *string       `json:"display_name,omitempty"`
	CurrentPhase        int           `json:"current_phase"`
	SignalStrengthScore int           `json:"signal_strength_score"`
	Level               string        `json:"level"`
	JournalStreak       int           `json:"journal_streak"`
	Badges              models.Badges `json:"badges"`
	CreatedAt           string        `json:"created_at"`
	LastActive          string        `json:"last_active"`
}

func ToUserDTO(u *models.UserProfile) UserDTO {
	badges := u.Badges
	if badges == nil {
		badges = models.Badges{}
	}
	return UserDTO{
		ID:                  u.ID.String(),
		WhopUserID:          u.WhopUserID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		CurrentPhase:        u.CurrentPhase,
		SignalStrengthScore: u.SignalStrengthScore,
		Level:               u.Level,
		JournalStreak:       u.JournalStreak,
		Badges:              badges,
		CreatedAt:           u.CreatedAt.Format(time.RFC3339),
		LastActive:          u.LastActive.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeErrorDetails(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}
