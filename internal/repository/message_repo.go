package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gptclone/internal/model"
)

// MessageRepo 消息仓库，消息只追加不修改
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo 创建消息仓库
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create 按顺序写入消息
func (r *MessageRepo) Create(ctx context.Context, msgs ...*model.Message) error {
	for _, msg := range msgs {
		if !msg.Role.IsValid() {
			return fmt.Errorf("invalid message role: %q", msg.Role)
		}
		if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListByConversation 查询对话内的全部消息，按时间正序
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uint) ([]*model.Message, error) {
	msgs := make([]*model.Message, 0)
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// CountByConversation 统计对话内的消息数
func (r *MessageRepo) CountByConversation(ctx context.Context, conversationID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&n).Error
	return n, err
}
