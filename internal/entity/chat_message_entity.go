package entity

import (
	"time"

	"kaleem-livechat/internal/constant"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId string
	Seq           int
	Role          string
	Chat          string
	Rating        *int
	Feedback      string
	RatedAt       *time.Time
	Metadata      map[string]interface{}
	Sources       []map[string]interface{}
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

func (m *ChatMessage) IsBot() bool {
	return m.Role == constant.ChatMessageRoleBot
}
