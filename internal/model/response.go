package model

// ChatResponse 对话响应，包含本轮写入的两条消息
type ChatResponse struct {
	UserMessage  *Message      `json:"user_message"`
	AIMessage    *Message      `json:"ai_message"`
	Conversation *Conversation `json:"conversation"`
	Usage        *TokenUsage   `json:"usage,omitempty"`
}

// AskResponse 旧版问答响应
type AskResponse struct {
	ID       uint   `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TokenUsage Token 使用统计
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DeleteResponse 删除结果
type DeleteResponse struct {
	ID      uint `json:"id"`
	Deleted bool `json:"deleted"`
}
