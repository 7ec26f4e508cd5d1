package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"gptclone/internal/ai/component"
	"gptclone/internal/config"
	"gptclone/internal/model"
)

// Client AI 能力层客户端
// 职责: 多轮对话走 Eino ChatModel，旧版 /ask 走 Completions 接口
type Client struct {
	cfg        *config.AIConfig
	chatChain  *ChatChain
	completion *CompletionChain
}

// NewClient 创建 AI 客户端
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	if cfg.Mock {
		log.Warn().Msg("AI mock mode enabled, remote API will not be called")
		return &Client{
			cfg:        cfg,
			chatChain:  NewChatChain(cfg, nil),
			completion: NewCompletionChain(cfg, nil),
		}, nil
	}

	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &Client{
		cfg:        cfg,
		chatChain:  NewChatChain(cfg, chatModel),
		completion: NewCompletionChain(cfg, component.NewCompletionClient(cfg)),
	}, nil
}

// ChatRequest AI 对话请求
type ChatRequest struct {
	Message string
	History []*model.Message
}

// ChatResponse AI 对话响应
type ChatResponse struct {
	Content string
	Usage   *model.TokenUsage
}

// Chat 同步对话
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return c.chatChain.Run(ctx, req)
}

// Complete 单轮补全，返回去除首尾空白的回答
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.completion.Run(ctx, prompt)
}

// Mock 是否处于 mock 模式
func (c *Client) Mock() bool {
	return c.cfg.Mock
}

// Close 关闭客户端
func (c *Client) Close() error {
	return nil
}
