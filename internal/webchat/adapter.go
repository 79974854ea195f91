package webchat

import (
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
)

// replyMessage turns a conversation turn into the widget's message frame.
func replyMessage(turn conversation.Turn) OutboundMessage {
	return OutboundMessage{
		Type:      "message",
		Role:      conversation.ChatRoleAssistant,
		Text:      turn.Reply,
		Stage:     turn.Stage.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func historyMessages(entries []conversation.TranscriptEntry) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(entries))
	for _, e := range entries {
		history = append(history, HistoryMessage{
			Role:      e.Role,
			Text:      e.Content,
			Timestamp: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return history
}
