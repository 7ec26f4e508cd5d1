package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gptclone/internal/ai"
	httputil "gptclone/internal/pkg/http"
	"gptclone/internal/service"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// abortWithError 把服务层错误映射为错误响应
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var resp *ErrorResponse
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		resp = httputil.NewErrorResponse(httputil.CodeEmptyMessage, err.Error())
	case errors.Is(err, service.ErrEmptyQuestion):
		resp = httputil.NewErrorResponse(httputil.CodeEmptyQuestion, err.Error())
	case errors.Is(err, service.ErrConversationNotFound):
		resp = httputil.NewErrorResponse(httputil.CodeNotFound, "Conversation not found")
	case errors.Is(err, ai.ErrNoChoices):
		resp = httputil.NewErrorResponse(httputil.CodeUpstream, "No response choices from OpenAI")
	case errors.Is(err, ai.ErrUpstream):
		resp = httputil.NewErrorResponse(httputil.CodeUpstream, "AI service error", err.Error())
	default:
		resp = httputil.NewErrorResponse(httputil.CodeInternal, "Internal server error", err.Error())
	}

	c.AbortWithStatusJSON(httputil.StatusOf(resp.Code), resp.WithRequestID(c.Request.Context()))
}

// abortInvalidBody 请求体解析失败
func abortInvalidBody(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		httputil.NewErrorResponse(httputil.CodeInvalidBody, "Invalid request body", err.Error()).
			WithRequestID(c.Request.Context()))
}

// parseID 解析路径参数 id，非正整数时直接写入 400
func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			httputil.NewErrorResponse(httputil.CodeInvalidID, "Invalid conversation id", raw).
				WithRequestID(c.Request.Context()))
		return 0, false
	}
	return uint(n), true
}
