// Package webchat serves the chat widget transport: a websocket for live
// turns plus plain HTTP fallbacks.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const msgTurnFailed = "Sorry, something went wrong. Please try again."

// Handler manages web chat connections and messages.
type Handler struct {
	service conversation.Service
	logger  *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	Stage     string           `json:"stage,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(service conversation.Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: conversation service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ConversationID builds the conversation ID for a webchat session.
func ConversationID(sessionID string) string {
	return "webchat:" + sessionID
}

func sessionFrom(r *http.Request) string {
	if s := strings.TrimSpace(r.URL.Query().Get("session")); s != "" {
		return s
	}
	return uuid.NewString()
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
// GET /chat/ws?session=<id>
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID := sessionFrom(r)
	convID := ConversationID(sessionID)
	logger := h.logger.WithConversation(convID)

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	if entries, err := h.service.History(ctx, convID); err != nil {
		logger.Warn("webchat: failed to load history", "error", err)
	} else if len(entries) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: historyMessages(entries)})
	}

	logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			logger.Debug("webchat: connection closed", "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		out := h.processMessage(ctx, convID, msg.Text)
		if err := websocket.JSON.Send(conn, out); err != nil {
			logger.Debug("webchat: send failed", "error", err)
			return
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, convID, text string) OutboundMessage {
	turn, err := h.service.Reply(ctx, convID, text)
	if err != nil {
		h.logger.Error("webchat: failed to process message", "conversation_id", convID, "error", err)
		return OutboundMessage{Type: "error", Text: msgTurnFailed}
	}
	return replyMessage(turn)
}

// HandleMessage is the HTTP fallback for sending messages.
// POST /chat/message {"session_id","text"}
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}

	turn, err := h.service.Reply(r.Context(), ConversationID(req.SessionID), req.Text)
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyMessage) {
			http.Error(w, "text is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("webchat: failed to process message", "session_id", req.SessionID, "error", err)
		http.Error(w, msgTurnFailed, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"session_id": req.SessionID,
		"reply":      turn.Reply,
		"stage":      turn.Stage.String(),
	})
}

// HandleHistory returns chat history for a session.
// GET /chat/history?session=<id>
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	entries, err := h.service.History(r.Context(), ConversationID(sessionID))
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": historyMessages(entries)})
}
