package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gptclone/internal/model"
	"gptclone/internal/service"
)

// AskHandler 旧版单轮问答
type AskHandler struct {
	svc *service.QnAService
}

// NewAskHandler 创建问答处理器
func NewAskHandler(svc *service.QnAService) *AskHandler {
	return &AskHandler{svc: svc}
}

// Ask 提问
// @Summary      单轮问答（旧版）
// @Description  使用 Completions 接口回答问题并保存问答记录
// @Tags         问答
// @Accept       json
// @Produce      json
// @Param        request  body      model.AskRequest  true  "问答请求"
// @Success      200      {object}  model.AskResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /ask [post]
func (h *AskHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalidBody(c, err)
		return
	}

	resp, err := h.svc.Ask(c.Request.Context(), req.Question)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
