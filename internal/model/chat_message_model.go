package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatMessage.Seq is the message's position in its session transcript and is
// what clients send back as msgIdx. Seq counts soft-deleted rows, so after a
// delete it no longer matches the array position. GET /chat/:id returns it
// with each message.
type ChatMessage struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ChatSessionId string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_chat_messages_session_seq,priority:1"`
	Seq           int            `gorm:"not null;uniqueIndex:idx_chat_messages_session_seq,priority:2"`
	Role          string         `gorm:"type:varchar(16);not null"`
	Chat          string         `gorm:"type:text;not null"`
	Rating        *int           `gorm:"type:smallint"`
	Feedback      string         `gorm:"type:text"`
	RatedAt       *time.Time
	Metadata      datatypes.JSON `gorm:"type:jsonb"`
	Sources       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
