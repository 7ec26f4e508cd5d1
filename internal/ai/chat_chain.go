package ai

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"gptclone/internal/config"
	"gptclone/internal/model"
)

// ChatChain 对话链
// 职责: 把对话历史转换为 Eino 消息并调用 ChatModel
type ChatChain struct {
	cfg       *config.AIConfig
	chatModel einomodel.BaseChatModel // 为 nil 时返回 mock 回复
}

// NewChatChain 创建对话链
func NewChatChain(cfg *config.AIConfig, chatModel einomodel.BaseChatModel) *ChatChain {
	return &ChatChain{
		cfg:       cfg,
		chatModel: chatModel,
	}
}

// Run 同步执行对话
func (c *ChatChain) Run(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if c.chatModel == nil {
		return mockChat(req), nil
	}

	messages := c.buildMessages(req)

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int("history", len(req.History)).Msg("chat model generate failed")
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	out := &ChatResponse{Content: resp.Content}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     resp.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: resp.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      resp.ResponseMeta.Usage.TotalTokens,
		}
	}
	return out, nil
}

// buildMessages system prompt + 历史 + 本轮消息
func (c *ChatChain) buildMessages(req *ChatRequest) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.History)+2)
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, schema.SystemMessage(c.cfg.SystemPrompt))
	}
	for _, msg := range req.History {
		switch msg.Role {
		case model.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case model.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return append(messages, schema.UserMessage(req.Message))
}

// mockChat 固定回复，内容只取决于输入
func mockChat(req *ChatRequest) *ChatResponse {
	content := "This is a mock response to: " + req.Message
	return &ChatResponse{
		Content: content,
		Usage:   estimateUsage(req.Message, content),
	}
}

func estimateUsage(prompt, completion string) *model.TokenUsage {
	p, c := countTokens(prompt), countTokens(completion)
	return &model.TokenUsage{
		PromptTokens:     p,
		CompletionTokens: c,
		TotalTokens:      p + c,
	}
}

// countTokens 粗略估算: 4 个字节约 1 个 token
func countTokens(text string) int {
	return len(text) / 4
}
