package component

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"gptclone/internal/config"
)

const (
	defaultCompletionModel = openai.GPT3Dot5TurboInstruct
	defaultCompletionLimit = 150
)

// Completer 旧版 Completions 接口
type Completer interface {
	CreateCompletion(ctx context.Context, req openai.CompletionRequest) (openai.CompletionResponse, error)
}

// NewCompletionClient 创建 go-openai 客户端
// BaseURL 为空时使用官方地址
func NewCompletionClient(cfg *config.AIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// CompletionModel 补全模型名称
func CompletionModel(cfg *config.AIConfig) string {
	if cfg.CompletionModel != "" {
		return cfg.CompletionModel
	}
	return defaultCompletionModel
}

// CompletionLimit 补全 max_tokens
func CompletionLimit(cfg *config.AIConfig) int {
	if cfg.CompletionLimit > 0 {
		return cfg.CompletionLimit
	}
	return defaultCompletionLimit
}
