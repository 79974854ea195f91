package conversation

import "errors"

var (
	// ErrEmptyMessage is returned when a turn carries no text.
	ErrEmptyMessage = errors.New("conversation: message text is required")
	// ErrMissingConversationID is returned when a turn has no conversation id.
	ErrMissingConversationID = errors.New("conversation: conversation id is required")
	errNoMessages            = errors.New("conversation: at least one message is required")
	errEmbeddingMismatch     = errors.New("conversation: embedding response size mismatch")
)
