package livechat

// Sender identifies who authored a transcript entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Rating is the thumbs up/down feedback value accepted by the rate endpoint.
type Rating int

const (
	RatingDown Rating = 0
	RatingUp   Rating = 1
)

func (r Rating) Valid() bool {
	return r == RatingDown || r == RatingUp
}

// Entry is one message as displayed in the transcript.
type Entry struct {
	ID     string
	Sender Sender
	Text   string

	// RatingIndex is the position of a bot message in the server's message
	// list. Nil for user entries and for synthetic entries (welcome, apology).
	RatingIndex *int
	Rating      *Rating
}

// ServerMessage is one element of the authoritative server transcript. Seq,
// when present, is the msgIdx of the message; otherwise the array position is
// used.
type ServerMessage struct {
	Seq       *int    `json:"seq,omitempty"`
	Role      string  `json:"role"`
	Text      string  `json:"text"`
	Rating    *Rating `json:"rating,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// SessionSnapshot is the body of GET /chat/{sessionId}.
type SessionSnapshot struct {
	SessionID string          `json:"sessionId"`
	Messages  []ServerMessage `json:"messages"`
}

// BotMessage is the payload of the realtime bot_reply event.
type BotMessage struct {
	Text   string `json:"text"`
	MsgIdx int    `json:"msgIdx"`
}

type SendRequest struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SendResponse is either {status: "queued"} or a synchronous reply.
type SendResponse struct {
	Status  string                   `json:"status,omitempty"`
	Reply   string                   `json:"reply,omitempty"`
	MsgIdx  *int                     `json:"msgIdx,omitempty"`
	Sources []map[string]interface{} `json:"sources,omitempty"`
}

func (r *SendResponse) Queued() bool {
	return r.Status == "queued"
}

type RateRequest struct {
	MsgIdx   int    `json:"msgIdx"`
	Rating   Rating `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
}
