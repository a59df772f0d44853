package events

import "time"

const (
	ChatMessageCreated = "CHAT_MESSAGE_CREATED"
	ChatMessageRated   = "CHAT_MESSAGE_RATED"
)

// NewChatMessageCreated describes a message appended to a session transcript.
func NewChatMessageCreated(sessionID, role string, msgIdx, textLength int, occurredAt time.Time) BaseEvent {
	return BaseEvent{
		Type: ChatMessageCreated,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"role":        role,
			"msg_idx":     msgIdx,
			"text_length": textLength,
		},
		OccurredAt: occurredAt,
	}
}

// NewChatMessageRated describes visitor feedback on a bot message.
func NewChatMessageRated(sessionID string, msgIdx, rating int, hasFeedback bool, occurredAt time.Time) BaseEvent {
	return BaseEvent{
		Type: ChatMessageRated,
		Data: map[string]interface{}{
			"session_id":   sessionID,
			"msg_idx":      msgIdx,
			"rating":       rating,
			"has_feedback": hasFeedback,
		},
		OccurredAt: occurredAt,
	}
}
