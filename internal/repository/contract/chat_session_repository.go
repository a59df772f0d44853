package contract

import (
	"context"

	"kaleem-livechat/internal/entity"
)

type ChatSessionRepository interface {
	// FindOrCreate returns the session with session.Id, creating it from
	// session when it does not exist yet.
	FindOrCreate(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error)
	// FindOne returns nil, nil when the session does not exist.
	FindOne(ctx context.Context, id string) (*entity.ChatSession, error)
}
