package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"gptclone/internal/ai/component"
	"gptclone/internal/config"
)

// CompletionChain 旧版单轮补全
type CompletionChain struct {
	cfg    *config.AIConfig
	client component.Completer // 为 nil 时返回 mock 回答
}

// NewCompletionChain 创建补全链
func NewCompletionChain(cfg *config.AIConfig, client component.Completer) *CompletionChain {
	return &CompletionChain{
		cfg:    cfg,
		client: client,
	}
}

// Run 发送 prompt，返回第一个候选的文本
func (c *CompletionChain) Run(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "This is a mock answer to: " + prompt, nil
	}

	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:     component.CompletionModel(c.cfg),
		Prompt:    prompt,
		MaxTokens: component.CompletionLimit(c.cfg),
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("completion request failed")
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return strings.TrimSpace(resp.Choices[0].Text), nil
}
