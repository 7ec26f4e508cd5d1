package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gptclone/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ConversationRepo 对话仓库
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo 创建对话仓库
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create 创建对话
func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	return r.db.WithContext(ctx).Create(conv).Error
}

// FindByID 根据 ID 查询
func (r *ConversationRepo) FindByID(ctx context.Context, id uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// List 按最近更新时间倒序查询对话列表
func (r *ConversationRepo) List(ctx context.Context, limit, offset int) ([]*model.Conversation, error) {
	convs := make([]*model.Conversation, 0)
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// Touch 更新最近活跃时间
func (r *ConversationRepo) Touch(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTitleIfEmpty 仅在标题未设置时写入标题，返回是否写入
func (r *ConversationRepo) SetTitleIfEmpty(ctx context.Context, id uint, title string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ? AND title = ?", id, "").
		UpdateColumn("title", title)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete 删除对话及其消息
func (r *ConversationRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 外键 ON DELETE CASCADE 之外显式删除，不依赖连接级的外键开关
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Conversation{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
