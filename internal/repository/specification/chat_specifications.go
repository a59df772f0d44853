package specification

import "gorm.io/gorm"

type ByChatSessionID struct {
	ChatSessionID string
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

type BySeq struct {
	Seq int
}

func (s BySeq) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("seq = ?", s.Seq)
}
