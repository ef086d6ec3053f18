package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"manifestun/internal/mentor"
	"manifestun/internal/middleware"
	"manifestun/internal/models"
	"manifestun/internal/services"
	"manifestun/internal/store"
)

var journalTypes = map[string]bool{
	"freeForm":  true,
	"guided":    true,
	"scripting": true,
}

// Completer is the synchronous slice of the completion API used for the
// best-effort analysis call.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []mentor.Message) (string, error)
}

type JournalHandler struct {
	store     store.Store
	completer Completer
	encSvc    *services.EncryptionService
}

func NewJournalHandler(st store.Store, completer Completer, encSvc *services.EncryptionService) *JournalHandler {
	return &JournalHandler{store: st, completer: completer, encSvc: encSvc}
}

type createJournalRequest struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	LinkedPhase *int   `json:"linked_phase"`
}

// Create persists one journal submission. The AI analysis is best-effort:
// any failure of that sub-call leaves the entry with a null analysis.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ctx := r.Context()

	var req createJournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if !journalTypes[req.Type] {
		writeError(w, http.StatusBadRequest, "Invalid journal type")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}
	if req.LinkedPhase != nil && (*req.LinkedPhase < 1 || *req.LinkedPhase > 10) {
		writeError(w, http.StatusBadRequest, "Invalid linked phase (must be 1-10)")
		return
	}

	profile, err := h.store.GetUserByWhopID(ctx, session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to create journal entry", err.Error())
		return
	}

	analysis := h.analyze(ctx, req.Content)
	var plainInsights string
	if analysis != nil {
		plainInsights = analysis.Insights
	}

	entry := &models.JournalEntry{
		UserID:      profile.ID,
		Type:        req.Type,
		Content:     req.Content,
		AIAnalysis:  analysis,
		LinkedPhase: req.LinkedPhase,
	}
	if err := h.encSvc.EncryptEntry(entry); err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to create journal entry", err.Error())
		return
	}
	if err := h.store.CreateJournalEntry(ctx, entry); err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to create journal entry", err.Error())
		return
	}
	if err := h.store.BumpJournalStreak(ctx, profile.ID, entry.ID); err != nil {
		slog.Warn("journal streak update failed", slog.Any("err", err))
	}

	// Respond with the plaintext shape, not what hit the disk.
	entry.Content = req.Content
	if entry.AIAnalysis != nil {
		entry.AIAnalysis.Insights = plainInsights
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": entry})
}

// analyze runs the fixed analysis prompt; a nil return means the sub-call
// failed and the entry proceeds without analysis.
func (h *JournalHandler) analyze(ctx context.Context, content string) *models.AIAnalysis {
	text, err := h.completer.Complete(ctx, mentor.AnalysisSystemPrompt, []mentor.Message{
		{Role: "user", Content: mentor.BuildAnalysisPrompt(content)},
	})
	if err != nil {
		slog.Warn("journal analysis failed", slog.Any("err", err))
		return nil
	}
	return &models.AIAnalysis{
		Insights:    text,
		Sentiment:   "neutral",
		GeneratedAt: time.Now().UTC(),
	}
}

// List returns the user's entries, newest first, content decrypted.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ctx := r.Context()

	profile, err := h.store.GetUserByWhopID(ctx, session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to fetch journal entries", err.Error())
		return
	}

	q := r.URL.Query()
	entryType := q.Get("type")
	if entryType != "" && !journalTypes[entryType] {
		entryType = ""
	}
	limit := 50
	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.store.ListJournalEntries(ctx, profile.ID, entryType, limit)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to fetch journal entries", err.Error())
		return
	}

	out := entries[:0]
	for i := range entries {
		if err := h.encSvc.DecryptEntry(&entries[i]); err != nil {
			slog.Warn("journal entry decrypt failed", slog.String("id", entries[i].ID.String()), slog.Any("err", err))
			continue
		}
		out = append(out, entries[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}
