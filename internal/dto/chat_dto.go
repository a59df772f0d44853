package dto

// The chat widget reads these bodies directly, so they are not wrapped in the
// serverutils response envelope.

type SendMessageRequest struct {
	Text     string                 `json:"text" validate:"required,max=4000"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type SendMessageResponse struct {
	Status  string                   `json:"status,omitempty"`
	Reply   string                   `json:"reply,omitempty"`
	MsgIdx  *int                     `json:"msgIdx,omitempty"`
	Sources []map[string]interface{} `json:"sources,omitempty"`
}

type RateMessageRequest struct {
	MsgIdx   *int   `json:"msgIdx" validate:"required,min=0"`
	Rating   *int   `json:"rating" validate:"required,oneof=0 1"`
	Feedback string `json:"feedback,omitempty" validate:"max=2000"`
}

type RateMessageResponse struct {
	Status string `json:"status"`
}

type SessionMessageResponse struct {
	Seq       int    `json:"seq"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Rating    *int   `json:"rating,omitempty"`
	Timestamp string `json:"timestamp"`
}

type GetSessionResponse struct {
	SessionId string                   `json:"sessionId"`
	Messages  []SessionMessageResponse `json:"messages"`
}

// BotReplyPayload is the data of the bot_reply realtime event.
type BotReplyPayload struct {
	Text   string `json:"text"`
	MsgIdx int    `json:"msgIdx"`
}

// ReplyRequestedMessage is queued in async reply mode.
type ReplyRequestedMessage struct {
	SessionId string `json:"session_id"`
	MsgIdx    int    `json:"msg_idx"`
}
