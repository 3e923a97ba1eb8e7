package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Alist     AlistConfig     `mapstructure:"alist"`
	TMDB      TMDBConfig      `mapstructure:"tmdb"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Rename    RenameConfig    `mapstructure:"rename"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

type AlistConfig struct {
	URL      string `mapstructure:"url"`
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// 读/写操作间隔 (毫秒)，写操作对网盘压力大，默认间隔更长
	ReadDelayMs  int `mapstructure:"read_delay_ms"`
	WriteDelayMs int `mapstructure:"write_delay_ms"`
	Retries      int `mapstructure:"retries"`
	BackoffMs    int `mapstructure:"backoff_ms"`
	PageSize     int `mapstructure:"page_size"`
}

type TMDBConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Language string `mapstructure:"language"`
	// 低于该分数的最佳候选视为未命中
	MatchThreshold float64 `mapstructure:"match_threshold"`
}

// AssistantConfig 指向任意 OpenAI 兼容的 chat completions 服务。
// Key 为空时整个辅助清洗环节跳过。
type AssistantConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type RenameConfig struct {
	// 目标冲突策略: suffix (追加 " (1)") 或 skip
	OnConflict string `mapstructure:"on_conflict"`
	// 额外的噪声标记，命中即强制重写/删除
	ExtraNoise []string `mapstructure:"extra_noise"`
	// 覆盖默认的垃圾目录正则
	SkipDirRegex string `mapstructure:"skip_dir_regex"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug or release
	// 日志页访问令牌，空则不鉴权
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var AppConfig *Config

func LoadConfig(configPath string) error {
	v := viper.New()

	// 默认值
	v.SetDefault("alist.url", "http://127.0.0.1:5244")
	v.SetDefault("alist.read_delay_ms", 500)
	v.SetDefault("alist.write_delay_ms", 1200)
	v.SetDefault("alist.retries", 3)
	v.SetDefault("alist.backoff_ms", 1500)
	v.SetDefault("alist.page_size", 200)
	v.SetDefault("tmdb.language", "zh-CN")
	v.SetDefault("tmdb.match_threshold", 0.72)
	v.SetDefault("assistant.base_url", "https://api.openai.com/v1")
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("rename.on_conflict", "suffix")
	v.SetDefault("server.port", 8315)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/tvtidy.db")
	v.SetDefault("log.level", "info")

	// 配置文件路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	// 环境变量替换 (使用 TVTIDY_ 前缀)
	// 比如 TVTIDY_ALIST_TOKEN=xxx
	v.SetEnvPrefix("TVTIDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	AppConfig = &Config{}
	if err := v.Unmarshal(AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return AppConfig.validate()
}

func (c *Config) validate() error {
	switch c.Rename.OnConflict {
	case "suffix", "skip":
	default:
		return fmt.Errorf("rename.on_conflict must be suffix or skip, got %q", c.Rename.OnConflict)
	}
	if c.TMDB.MatchThreshold < 0 || c.TMDB.MatchThreshold > 1 {
		return fmt.Errorf("tmdb.match_threshold must be in [0,1], got %v", c.TMDB.MatchThreshold)
	}
	return nil
}
