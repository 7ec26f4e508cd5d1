package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gptclone/internal/model"
	"gptclone/internal/service"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	svc *service.ChatService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Send 发送一轮对话
// @Summary      发送消息
// @Description  保存用户消息，携带完整历史调用 AI，保存回复并返回两条消息。AI 调用失败时不写入任何数据
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        id       path      int                true  "对话ID"
// @Param        request  body      model.ChatRequest  true  "对话请求"
// @Success      200      {object}  model.ChatResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/conversations/{id}/chat [post]
func (h *ChatHandler) Send(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalidBody(c, err)
		return
	}

	resp, err := h.svc.Send(c.Request.Context(), id, req.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
