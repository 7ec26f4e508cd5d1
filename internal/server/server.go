package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "gptclone/docs"
	"gptclone/internal/ai"
	"gptclone/internal/config"
	"gptclone/internal/handler"
	"gptclone/internal/pkg/cache"
	"gptclone/internal/pkg/database"
	"gptclone/internal/repository"
	"gptclone/internal/server/middleware"
	"gptclone/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	db     *database.Client
	redis  *cache.RedisCache
	ai     *ai.Client
}

// New 创建服务器实例
// 数据库和 AI 客户端是必需的，Redis 不可用时继续运行但不启用消息缓存
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Str("dialect", string(db.Target().Dialect)).Msg("connected to database")

	aiClient, err := ai.NewClient(ctx, &cfg.AI)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Bool("mock", aiClient.Mock()).Msg("initialized AI client")

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without message cache")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: gin.New(),
		db:     db,
		redis:  redisCache,
		ai:     aiClient,
	}

	srv.setupRoutes()

	return srv, nil
}

// migrateUp 启动时把数据库迁移到最新版本
func migrateUp(url string) error {
	m, err := database.NewMigrator(url)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close migrator")
		}
	}()

	if err := m.Up(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.Info().Uint("version", version).Msg("database migrated")
	return nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS(s.cfg.Server.CORSOrigins))

	store := repository.NewStore(s.db.DB())

	// redis 为 nil 时必须传入 nil 接口，不能传入带类型的 nil 指针
	var messageCache service.MessageCache
	if s.redis != nil {
		messageCache = s.redis
	}

	convSvc := service.NewConversationService(store, messageCache, s.cfg.Redis.MessageTTL)
	chatSvc := service.NewChatService(store, s.ai, convSvc)
	qnaSvc := service.NewQnAService(store, s.ai)

	// 健康检查
	var cachePinger handler.Pinger
	if s.redis != nil {
		cachePinger = s.redis
	}
	healthHandler := handler.NewHealthHandler(s.db, cachePinger)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 旧版问答接口
	askHandler := handler.NewAskHandler(qnaSvc)
	s.engine.POST("/ask", askHandler.Ask)

	api := s.engine.Group("/api")
	{
		convHandler := handler.NewConversationHandler(convSvc)
		chatHandler := handler.NewChatHandler(chatSvc)

		api.GET("/conversations", convHandler.List)
		api.POST("/conversations", convHandler.Create)
		api.GET("/conversations/:id", convHandler.Get)
		api.DELETE("/conversations/:id", convHandler.Delete)
		api.GET("/conversations/:id/messages", convHandler.Messages)
		api.POST("/conversations/:id/chat", chatHandler.Send)
	}
}

// Run 启动服务器，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		s.Close()
		return err
	case err := <-errCh:
		s.Close()
		return err
	}
}

// Close 关闭数据库、Redis 和 AI 客户端
func (s *Server) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
	}
	if err := s.ai.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close AI client")
	}
	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database connection")
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
