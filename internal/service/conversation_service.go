package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"gptclone/internal/model"
	"gptclone/internal/pkg/cache"
	"gptclone/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ConversationService 对话管理
// 消息列表走 cache-aside：读未命中回源并回填，写入或删除后失效
type ConversationService struct {
	store *repository.Store
	cache MessageCache // 可为 nil
	ttl   time.Duration
}

// NewConversationService 创建对话管理服务，messageCache 为 nil 时不启用缓存
func NewConversationService(store *repository.Store, messageCache MessageCache, ttl time.Duration) *ConversationService {
	if ttl <= 0 {
		ttl = cache.MessagesCacheTTL
	}
	return &ConversationService{
		store: store,
		cache: messageCache,
		ttl:   ttl,
	}
}

// List 按最近更新倒序分页
func (s *ConversationService) List(ctx context.Context, limit, offset int) ([]*model.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	convs, err := s.store.Conversations.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Create 创建对话，title 可为空
func (s *ConversationService) Create(ctx context.Context, title string) (*model.Conversation, error) {
	conv := &model.Conversation{Title: title}
	if err := s.store.Conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	log.Ctx(ctx).Info().Uint("conversation_id", conv.ID).Msg("conversation created")
	return conv, nil
}

// Get 查询单个对话
func (s *ConversationService) Get(ctx context.Context, id uint) (*model.Conversation, error) {
	conv, err := s.store.Conversations.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "get conversation")
	}
	return conv, nil
}

// Messages 查询对话的全部消息，按时间正序
// 回填缓存后再次读取 updated_at，期间有对话写入时删除刚回填的 key，避免旧列表在 TTL 内一直有效
func (s *ConversationService) Messages(ctx context.Context, id uint) ([]*model.Message, error) {
	key := cache.MessagesCacheKey(id)
	if s.cache != nil {
		var cached []*model.Message
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("message cache read failed")
		}
	}

	conv, err := s.store.Conversations.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "list messages")
	}
	msgs, err := s.store.Messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, msgs, s.ttl); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("message cache write failed")
		} else if s.changedSince(ctx, conv) {
			s.invalidate(ctx, id)
		}
	}
	return msgs, nil
}

// changedSince 对话在 conv 读取之后是否被更新或删除，查询失败时按已变更处理
func (s *ConversationService) changedSince(ctx context.Context, conv *model.Conversation) bool {
	current, err := s.store.Conversations.FindByID(ctx, conv.ID)
	if err != nil {
		return true
	}
	return !current.UpdatedAt.Equal(conv.UpdatedAt)
}

// Delete 删除对话及其全部消息
func (s *ConversationService) Delete(ctx context.Context, id uint) error {
	if err := s.store.Conversations.Delete(ctx, id); err != nil {
		return wrapNotFound(err, "delete conversation")
	}
	s.invalidate(ctx, id)

	log.Ctx(ctx).Info().Uint("conversation_id", id).Msg("conversation deleted")
	return nil
}

// invalidate 删除消息缓存，失败只记录日志
func (s *ConversationService) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	key := cache.MessagesCacheKey(id)
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("message cache invalidate failed")
	}
}

// wrapNotFound 对话不存在（包括写入消息时外键失败）统一为 ErrConversationNotFound
func wrapNotFound(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%s: %w", op, ErrConversationNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
