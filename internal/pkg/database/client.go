package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gptclone/internal/config"
)

// Client 关系型数据库客户端封装
type Client struct {
	db     *gorm.DB
	target *Target
}

// New 创建数据库客户端
func New(cfg *config.DatabaseConfig) (*Client, error) {
	target, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch target.Dialect {
	case DialectPostgres:
		dialector = postgres.Open(target.DSN)
	case DialectSQLite:
		dialector = sqlite.Open(target.DSN)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", target.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// SQLite 只允许单写连接
	if target.Dialect == DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().Str("dialect", string(target.Dialect)).Msg("database connected")

	return &Client{db: db, target: target}, nil
}

// DB 获取 gorm 句柄
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Target 获取连接目标
func (c *Client) Target() *Target {
	return c.target
}

// Ping 检查连接是否可用
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
