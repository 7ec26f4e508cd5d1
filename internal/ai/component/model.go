package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"gptclone/internal/config"
)

const (
	defaultOpenAIModel = "gpt-3.5-turbo"
	defaultArkBaseURL  = "https://ark.cn-beijing.volces.com/api/v3"
	defaultArkModel    = "doubao-seed-1-6-flash-250615"
)

// NewChatModel 创建 ChatModel
// 支持 Provider: openai（默认）, azure, ark
func NewChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIChatModel(ctx, cfg, false)
	case "azure":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("azure provider requires ai.base_url")
		}
		return newOpenAIChatModel(ctx, cfg, true)
	case "ark":
		return newArkChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// sampling 把配置中的可选参数转换为指针，未设置时为 nil
type sampling struct {
	temperature *float32
	maxTokens   *int
	topP        *float32
}

func samplingFrom(opts config.AIOptionsConfig) sampling {
	var s sampling
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		s.temperature = &t
	}
	if opts.MaxTokens > 0 {
		n := opts.MaxTokens
		s.maxTokens = &n
	}
	if opts.TopP > 0 {
		p := float32(opts.TopP)
		s.topP = &p
	}
	return s
}

// newOpenAIChatModel 创建 OpenAI / Azure OpenAI ChatModel
func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig, byAzure bool) (model.ChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	s := samplingFrom(cfg.Options)
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:       modelName,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL, // 为空时使用官方地址
		ByAzure:     byAzure,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		TopP:        s.topP,
	})
}

// newArkChatModel 创建火山方舟 ChatModel
func newArkChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultArkBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultArkModel
	}

	s := samplingFrom(cfg.Options)
	return arkext.NewChatModel(ctx, &arkext.ChatModelConfig{
		Model:       modelName,
		APIKey:      cfg.APIKey,
		BaseURL:     baseURL,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		TopP:        s.topP,
	})
}
