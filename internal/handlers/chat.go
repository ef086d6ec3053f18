package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"manifestun/internal/mentor"
	"manifestun/internal/middleware"
	"manifestun/internal/models"
	"manifestun/internal/store"
)

// ChatStreamer is the slice of the completion API the proxy needs.
type ChatStreamer interface {
	Stream(ctx context.Context, systemPrompt string, messages []mentor.Message) (<-chan string, <-chan error)
}

type ChatHandler struct {
	store  store.Store
	mentor ChatStreamer
}

func NewChatHandler(st store.Store, streamer ChatStreamer) *ChatHandler {
	return &ChatHandler{store: st, mentor: streamer}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Send forwards one user message to the mentor model and relays the token
// stream back as server-sent events, persisting the full exchange once the
// upstream stream ends.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	ctx := r.Context()
	profile, err := h.store.GetUserByWhopID(ctx, session.WhopUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to process chat message", err.Error())
		return
	}

	history := models.Messages{}
	conversation, err := h.store.GetConversation(ctx, profile.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to process chat message", err.Error())
		return
	}
	if conversation != nil {
		history = conversation.Messages
	}
	history = append(history, models.ChatMessage{Role: "user", Content: req.Message})

	turns := make([]mentor.Message, len(history))
	for i, m := range history {
		turns[i] = mentor.Message{Role: m.Role, Content: m.Content}
	}

	systemPrompt := mentor.BuildMonkPrompt(mentor.PromptContext{CurrentPhase: profile.CurrentPhase})

	// The forwarding loop rides on the request context: a client disconnect
	// cancels the upstream call.
	contentChan, errorChan := h.mentor.Stream(ctx, systemPrompt, turns)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var full strings.Builder
	for contentChan != nil || errorChan != nil {
		select {
		case text, open := <-contentChan:
			if !open {
				contentChan = nil
				continue
			}
			full.WriteString(text)
			writeEvent(w, map[string]string{"text": text})
			flusher.Flush()
		case err, open := <-errorChan:
			if !open {
				errorChan = nil
				continue
			}
			slog.Error("chat stream failed", slog.Any("err", err))
			writeEvent(w, map[string]string{"error": "stream failed"})
			flusher.Flush()
			return
		}
	}

	// Persist before signalling completion. A failed save is logged but the
	// already-streamed answer is not retracted.
	history = append(history, models.ChatMessage{Role: "assistant", Content: full.String()})
	if err := h.store.SaveConversation(ctx, profile.ID, history); err != nil {
		slog.Error("conversation save failed", slog.Any("err", err))
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
}
