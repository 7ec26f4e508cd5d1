package service

import (
	"context"
	"time"

	"gptclone/internal/ai"
)

// ChatModel 多轮对话能力，由 ai.Client 实现
type ChatModel interface {
	Chat(ctx context.Context, req *ai.ChatRequest) (*ai.ChatResponse, error)
}

// Completer 单轮补全能力，由 ai.Client 实现
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MessageCache 消息列表缓存，由 cache.RedisCache 实现
// Get 未命中时返回错误即可，调用方不区分错误类型
type MessageCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
