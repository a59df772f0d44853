package mapper

import (
	"encoding/json"
	"time"

	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var metadata map[string]interface{}
	decodeJSON(s.Metadata, &metadata)

	return &entity.ChatSession{
		Id:        s.Id,
		Metadata:  metadata,
		CreatedAt: s.CreatedAt,
		UpdatedAt: timePtr(s.UpdatedAt),
		DeletedAt: deletedAtPtr(s.DeletedAt),
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		Metadata:  encodeJSON(s.Metadata),
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: toDeletedAt(s.DeletedAt, s.IsDeleted),
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var metadata map[string]interface{}
	decodeJSON(msg.Metadata, &metadata)
	var sources []map[string]interface{}
	decodeJSON(msg.Sources, &sources)

	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Seq:           msg.Seq,
		Role:          msg.Role,
		Chat:          msg.Chat,
		Rating:        msg.Rating,
		Feedback:      msg.Feedback,
		RatedAt:       msg.RatedAt,
		Metadata:      metadata,
		Sources:       sources,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     timePtr(msg.UpdatedAt),
		DeletedAt:     deletedAtPtr(msg.DeletedAt),
		IsDeleted:     msg.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Seq:           msg.Seq,
		Role:          msg.Role,
		Chat:          msg.Chat,
		Rating:        msg.Rating,
		Feedback:      msg.Feedback,
		RatedAt:       msg.RatedAt,
		Metadata:      encodeJSON(msg.Metadata),
		Sources:       encodeJSON(msg.Sources),
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     toDeletedAt(msg.DeletedAt, msg.IsDeleted),
	}
}

// Helpers

func encodeJSON(v interface{}) datatypes.JSON {
	switch x := v.(type) {
	case map[string]interface{}:
		if len(x) == 0 {
			return nil
		}
	case []map[string]interface{}:
		if len(x) == 0 {
			return nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func decodeJSON(data datatypes.JSON, out interface{}) {
	if len(data) == 0 {
		return
	}
	// Malformed JSON columns decode to the zero value
	_ = json.Unmarshal(data, out)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deletedAtPtr(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func toDeletedAt(t *time.Time, isDeleted bool) gorm.DeletedAt {
	if t != nil {
		return gorm.DeletedAt{Time: *t, Valid: true}
	}
	if isDeleted {
		return gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return gorm.DeletedAt{}
}
