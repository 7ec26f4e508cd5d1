package config

import (
	"errors"
	"strings"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	Debug        bool          `mapstructure:"debug"` // 为 true 时强制 debug 模式
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider        string          `mapstructure:"provider"`
	APIKey          string          `mapstructure:"api_key"`
	Model           string          `mapstructure:"model"`
	BaseURL         string          `mapstructure:"base_url"`
	SystemPrompt    string          `mapstructure:"system_prompt"`
	Mock            bool            `mapstructure:"mock"`             // 使用固定回复，不调用远端 API
	CompletionModel string          `mapstructure:"completion_model"` // 旧版 /ask 接口使用的补全模型
	CompletionLimit int             `mapstructure:"completion_limit"` // 旧版补全 max_tokens
	Options         AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// DatabaseConfig 关系型数据库配置
// URL 支持 postgres://、postgresql://、sqlite:///path、sqlite3://path
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"` // 启动时执行 migrate up
	LogLevel     string `mapstructure:"log_level"`    // gorm 日志级别: silent/error/warn/info
}

// RedisConfig Redis 配置
// Addr 为空时不启用消息缓存
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	MessageTTL time.Duration `mapstructure:"message_ttl"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	if c.Server.Debug {
		c.Server.Mode = "debug"
	}
	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if strings.TrimSpace(c.AI.APIKey) == "" {
		return errors.New("AI API key is not set (ai.api_key / OPENAI_API_KEY)")
	}

	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database url is not set (database.url / DATABASE_URL)")
	}

	return nil
}
