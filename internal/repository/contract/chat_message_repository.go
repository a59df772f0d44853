package contract

import (
	"context"
	"time"

	"kaleem-livechat/internal/entity"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	// Append stores message as the next message of its session. Id, Seq and
	// CreatedAt are assigned by the repository.
	Append(ctx context.Context, message *entity.ChatMessage) error
	// FindBySession returns the transcript ordered by Seq.
	FindBySession(ctx context.Context, sessionId string) ([]*entity.ChatMessage, error)
	// FindRecent returns the last limit messages ordered by Seq.
	FindRecent(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error)
	// FindBySeq returns nil, nil when there is no such message.
	FindBySeq(ctx context.Context, sessionId string, seq int) (*entity.ChatMessage, error)
	UpdateRating(ctx context.Context, id uuid.UUID, rating int, feedback string, ratedAt time.Time) error
}
