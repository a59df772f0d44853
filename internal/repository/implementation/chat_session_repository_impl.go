package implementation

import (
	"context"
	"errors"

	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/mapper"
	"kaleem-livechat/internal/model"
	"kaleem-livechat/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) FindOrCreate(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error) {
	m := r.mapper.ChatSessionToModel(session)
	// Concurrent first messages of the same session race here; the loser's
	// insert is a no-op and both read the winner's row.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return nil, err
	}
	return r.FindOne(ctx, session.Id)
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, id string) (*entity.ChatSession, error) {
	var m model.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&m), nil
}
