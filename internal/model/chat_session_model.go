package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatSession is keyed by the widget-generated session id.
type ChatSession struct {
	Id        string         `gorm:"type:varchar(128);primaryKey"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Messages []ChatMessage `gorm:"foreignKey:ChatSessionId;references:Id;constraint:OnDelete:CASCADE"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
