package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	httputil "gptclone/internal/pkg/http"
)

// Pinger 可探活的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db    Pinger
	cache Pinger // 可为 nil
}

// NewHealthHandler 创建健康检查处理器，未启用缓存时 cache 传 nil
func NewHealthHandler(db Pinger, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health 存活检查
// @Summary  存活检查
// @Tags     系统
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready 就绪检查，数据库不可达时返回 503
// 缓存是可选依赖，不可达只体现在 cache 字段
// @Summary  就绪检查
// @Tags     系统
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  ErrorResponse
// @Router   /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			httputil.NewErrorResponse(httputil.CodeUnavailable, "Database not available", err.Error()).
				WithRequestID(ctx))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"cache":  h.cacheStatus(ctx),
	})
}

func (h *HealthHandler) cacheStatus(ctx context.Context) string {
	if h.cache == nil {
		return "disabled"
	}
	if err := h.cache.Ping(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("cache ping failed")
		return "unavailable"
	}
	return "ok"
}
