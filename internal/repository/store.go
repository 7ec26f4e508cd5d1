package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合同一个 gorm 句柄上的全部仓库
type Store struct {
	db            *gorm.DB
	Conversations *ConversationRepo
	Messages      *MessageRepo
	QnA           *QnARepo
}

// NewStore 创建仓库集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Conversations: NewConversationRepo(db),
		Messages:      NewMessageRepo(db),
		QnA:           NewQnARepo(db),
	}
}

// Transaction 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
