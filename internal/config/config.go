package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App     AppConfig
	Storage StorageConfig
	AI      AIConfig
	Chat    ChatConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	DataDir     string
}

// StorageConfig 远程文件存储 API 配置
type StorageConfig struct {
	BaseURL string
	Timeout int
}

// AIConfig AI 配置
type AIConfig struct {
	MaxAttempts int
	OpenAI      OpenAIConfig
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// ChatConfig 聊天配置
type ChatConfig struct {
	MaxContextChars int
	Preferences     PreferencesConfig
}

// PreferencesConfig 用户偏好配置（语气/格式/长度/备注）
type PreferencesConfig struct {
	Tone   string
	Format string
	Length string
	Notes  string
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			// 配置文件缺失时使用默认值和环境变量
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// 默认配置
	setDefaults(v)

	// 环境变量
	v.SetEnvPrefix("NEXT_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "next-chat")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.dataDir", ".")

	// Storage
	v.SetDefault("storage.baseUrl", "http://localhost:8000")
	v.SetDefault("storage.timeout", 30)

	// AI
	v.SetDefault("ai.maxAttempts", 3)
	v.SetDefault("ai.openai.apiKey", "")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.timeout", 60)

	// Chat
	v.SetDefault("chat.maxContextChars", 12000)
	v.SetDefault("chat.preferences.tone", "Neutral")
	v.SetDefault("chat.preferences.format", "Markdown")
	v.SetDefault("chat.preferences.length", "Medium")
	v.SetDefault("chat.preferences.notes", "")
}
