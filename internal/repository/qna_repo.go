package repository

import (
	"context"

	"gorm.io/gorm"

	"gptclone/internal/model"
)

// QnARepo 旧版问答仓库
type QnARepo struct {
	db *gorm.DB
}

// NewQnARepo 创建问答仓库
func NewQnARepo(db *gorm.DB) *QnARepo {
	return &QnARepo{db: db}
}

// Create 保存一条问答
func (r *QnARepo) Create(ctx context.Context, qna *model.QnA) error {
	return r.db.WithContext(ctx).Create(qna).Error
}

// List 按写入顺序倒序查询
func (r *QnARepo) List(ctx context.Context, limit int) ([]*model.QnA, error) {
	items := make([]*model.QnA, 0)
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
