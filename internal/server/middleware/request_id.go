package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gptclone/internal/pkg/ctxutil"
	"gptclone/internal/pkg/id"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID 为每个请求分配 ID，并把带 request_id 字段的 logger 绑定到 context
// 客户端传入合法 UUID 时沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := id.OrNew(c.GetHeader(RequestIDHeader))

		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)

		logger := log.With().Str(requestIDKey, rid).Logger()
		ctx := ctxutil.WithRequestID(c.Request.Context(), rid)
		c.Request = c.Request.WithContext(logger.WithContext(ctx))

		c.Next()
	}
}
