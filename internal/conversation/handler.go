package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// MessageRequest is the body of POST /conversations/{conversationID}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// PostMessage handles POST /conversations/{conversationID}/messages.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := h.service.Reply(r.Context(), conversationID, req.Text)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMissingConversationID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to process message", "conversation_id", conversationID, "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, turn)
}

// History handles GET /conversations/{conversationID}/messages.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	entries, err := h.service.History(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load transcript", "conversation_id", conversationID, "error", err)
		http.Error(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []TranscriptEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        entries,
	})
}

// Clear handles DELETE /conversations/{conversationID}/messages.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if err := h.service.Reset(r.Context(), conversationID); err != nil {
		h.logger.Error("failed to clear conversation", "conversation_id", conversationID, "error", err)
		http.Error(w, "Failed to clear messages", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
