package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gptclone/internal/config"
	"gptclone/internal/pkg/logger"
)

const envPrefix = "GPTCLONE"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gptclone",
	Short: "GPTClone - chat proxy backend",
	Long: `GPTClone persists conversations and messages in a relational database
and forwards each chat turn, with its full history, to an OpenAI-compatible model.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// .env 不存在时忽略
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment from .env")
	}

	var err error
	cfg, err = loadConfig(viper.GetViper(), cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

// loadConfig 读取配置文件、环境变量和默认值，配置文件不存在时不报错
func loadConfig(vp *viper.Viper, file string) (*config.Config, error) {
	if file != "" {
		vp.SetConfigFile(file)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./configs")
		vp.AddConfigPath(".")
		vp.AddConfigPath("$HOME/.gptclone")
	}

	// 环境变量设置
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	bindLegacyEnv(vp)

	// 设置默认值
	setDefaults(vp)

	// 读取配置文件
	if err := vp.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 反序列化到结构体
	c := &config.Config{}
	if err := vp.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// bindLegacyEnv 兼容旧部署使用的无前缀环境变量，带前缀的变量优先
func bindLegacyEnv(vp *viper.Viper) {
	legacy := map[string]string{
		"database.url": "DATABASE_URL",
		"ai.api_key":   "OPENAI_API_KEY",
		"ai.mock":      "OPENAI_MOCK",
		"server.host":  "HOST",
		"server.port":  "PORT",
		"server.debug": "DEBUG",
	}
	for key, env := range legacy {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = vp.BindEnv(key, prefixed, env)
	}
}

func setDefaults(vp *viper.Viper) {
	// Server
	vp.SetDefault("server.host", "127.0.0.1")
	vp.SetDefault("server.port", 5000)
	vp.SetDefault("server.mode", "release")
	vp.SetDefault("server.debug", false)
	vp.SetDefault("server.read_timeout", "30s")
	vp.SetDefault("server.write_timeout", "120s")
	vp.SetDefault("server.cors_origins", []string{"*"})

	// AI
	vp.SetDefault("ai.provider", "openai")
	vp.SetDefault("ai.model", "gpt-3.5-turbo")
	vp.SetDefault("ai.mock", false)
	vp.SetDefault("ai.completion_model", "gpt-3.5-turbo-instruct")
	vp.SetDefault("ai.completion_limit", 150)
	vp.SetDefault("ai.options.temperature", 0.7)

	// Log
	vp.SetDefault("log.level", "info")
	vp.SetDefault("log.format", "console")
	vp.SetDefault("log.output", "stdout")
	vp.SetDefault("log.time_format", "RFC3339")

	// Database
	vp.SetDefault("database.url", "sqlite:///gptclone.db")
	vp.SetDefault("database.max_open_conns", 10)
	vp.SetDefault("database.max_idle_conns", 5)
	vp.SetDefault("database.auto_migrate", true)
	vp.SetDefault("database.log_level", "warn")

	// Redis (addr 为空时不启用缓存)
	vp.SetDefault("redis.addr", "")
	vp.SetDefault("redis.db", 0)
	vp.SetDefault("redis.message_ttl", "30m")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
