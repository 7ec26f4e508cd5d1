package model

// ChatRequest 对话请求，message 为空时由服务层返回 40002
type ChatRequest struct {
	Message string `json:"message" example:"Hello!"`
}

// CreateConversationRequest 创建对话请求，请求体可省略
type CreateConversationRequest struct {
	Title string `json:"title,omitempty" binding:"max=255"`
}

// AskRequest 旧版问答请求
type AskRequest struct {
	Question string `json:"question" example:"What is Go?"`
}

// ListConversationsQuery 对话列表分页参数
type ListConversationsQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
