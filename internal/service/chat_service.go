package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"gptclone/internal/ai"
	"gptclone/internal/model"
	"gptclone/internal/repository"
)

// ChatService 对话服务
// 职责: 编排 AI 层和数据层，一轮对话的两条消息要么全部写入要么都不写入
type ChatService struct {
	store         *repository.Store
	chatModel     ChatModel
	conversations *ConversationService // 用于失效消息缓存
}

// NewChatService 创建对话服务
func NewChatService(store *repository.Store, chatModel ChatModel, conversations *ConversationService) *ChatService {
	return &ChatService{
		store:         store,
		chatModel:     chatModel,
		conversations: conversations,
	}
}

// Send 处理一轮对话
// 流程: 校验 -> 读取历史 -> 调用 AI -> 单个事务写入两条消息并更新标题和时间 -> 失效缓存
func (s *ChatService) Send(ctx context.Context, conversationID uint, message string) (*model.ChatResponse, error) {
	content := strings.TrimSpace(message)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	logger := log.Ctx(ctx).With().Uint("conversation_id", conversationID).Logger()

	current, err := s.store.Conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, wrapNotFound(err, "chat")
	}
	history, err := s.store.Messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	askedAt := time.Now().UTC()

	// AI 调用不在事务内，失败时不会留下任何记录
	aiResp, err := s.chatModel.Chat(ctx, &ai.ChatRequest{
		Message: content,
		History: history,
	})
	if err != nil {
		logger.Error().Err(err).Int("history", len(history)).Msg("AI chat failed")
		return nil, fmt.Errorf("chat: %w", err)
	}

	userMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        content,
		CreatedAt:      askedAt,
	}
	aiMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        aiResp.Content,
		CreatedAt:      time.Now().UTC(),
	}
	if !aiMsg.CreatedAt.After(askedAt) {
		aiMsg.CreatedAt = askedAt.Add(time.Microsecond)
	}

	var conv *model.Conversation
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		// AI 调用期间对话可能已被删除
		if _, err := tx.Conversations.FindByID(ctx, conversationID); err != nil {
			return err
		}
		if err := tx.Messages.Create(ctx, userMsg, aiMsg); err != nil {
			return fmt.Errorf("save messages: %w", err)
		}
		if !current.HasTitle() {
			if _, err := tx.Conversations.SetTitleIfEmpty(ctx, conversationID, model.TitleFromMessage(content)); err != nil {
				return fmt.Errorf("set title: %w", err)
			}
		}
		if err := tx.Conversations.Touch(ctx, conversationID, aiMsg.CreatedAt); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		var err error
		conv, err = tx.Conversations.FindByID(ctx, conversationID)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("chat transaction rolled back")
		return nil, wrapNotFound(err, "chat")
	}
	s.conversations.invalidate(ctx, conversationID)

	resp := &model.ChatResponse{
		UserMessage:  userMsg,
		AIMessage:    aiMsg,
		Conversation: conv,
		Usage:        aiResp.Usage,
	}
	if resp.Usage != nil {
		logger.Info().
			Int("prompt_tokens", resp.Usage.PromptTokens).
			Int("completion_tokens", resp.Usage.CompletionTokens).
			Msg("chat completed")
	}
	return resp, nil
}
