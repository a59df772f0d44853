package implementation

import (
	"context"
	"errors"
	"time"

	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/mapper"
	"kaleem-livechat/internal/model"
	"kaleem-livechat/internal/repository/contract"
	"kaleem-livechat/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Append(ctx context.Context, message *entity.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the session row so appends to one session get consecutive Seq values
		var session model.ChatSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", message.ChatSessionId).
			First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return contract.ErrRecordNotFound
			}
			return err
		}

		var count int64
		query := r.applySpecifications(tx.Unscoped().Model(&model.ChatMessage{}),
			specification.ByChatSessionID{ChatSessionID: message.ChatSessionId},
		)
		if err := query.Count(&count).Error; err != nil {
			return err
		}

		if message.Id == uuid.Nil {
			message.Id = uuid.New()
		}
		message.Seq = int(count)

		m := r.mapper.ChatMessageToModel(message)
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if err := tx.Model(&session).Update("updated_at", m.CreatedAt).Error; err != nil {
			return err
		}
		*message = *r.mapper.ChatMessageToEntity(m)
		return nil
	})
}

func (r *ChatMessageRepositoryImpl) FindBySession(ctx context.Context, sessionId string) ([]*entity.ChatMessage, error) {
	return r.findAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "seq"},
	)
}

func (r *ChatMessageRepositoryImpl) FindRecent(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error) {
	messages, err := r.findAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "seq", Desc: true},
		specification.Limit{N: limit},
	)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *ChatMessageRepositoryImpl) FindBySeq(ctx context.Context, sessionId string, seq int) (*entity.ChatMessage, error) {
	var m model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.BySeq{Seq: seq},
	)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatMessageToEntity(&m), nil
}

func (r *ChatMessageRepositoryImpl) UpdateRating(ctx context.Context, id uuid.UUID, rating int, feedback string, ratedAt time.Time) error {
	result := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ChatMessage{}), specification.ByID{ID: id}).
		Updates(map[string]interface{}{
			"rating":   rating,
			"feedback": feedback,
			"rated_at": ratedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrRecordNotFound
	}
	return nil
}

func (r *ChatMessageRepositoryImpl) findAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatMessageToEntity(m)
	}
	return entities, nil
}
