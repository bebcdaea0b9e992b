package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/cloudwego/eino-ext/components/model/openai"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrNotConfigured API Key 未配置
// 配置错误与请求失败分开，调用方可以用 errors.Is 区分处理
var ErrNotConfigured = errors.New("openai api key is not set")

// 重试退避上限
const maxBackoff = 8 * time.Second

// Client 带重试的聊天补全客户端
type Client struct {
	chatModel   ecomodel.BaseChatModel
	configured  bool
	maxAttempts int

	// 退避等待，测试中可替换
	sleep func(time.Duration)
}

// NewClient 创建聊天客户端
// API Key 缺失不在这里报错，而是在 Send 时返回 ErrNotConfigured
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	c := &Client{
		maxAttempts: normalizeAttempts(cfg.AI.MaxAttempts),
		sleep:       time.Sleep,
	}

	aiCfg := cfg.AI.OpenAI
	if aiCfg.APIKey == "" {
		return c, nil
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  aiCfg.APIKey,
		BaseURL: aiCfg.BaseURL,
		Model:   aiCfg.Model,
		Timeout: time.Duration(aiCfg.Timeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	c.chatModel = chatModel
	c.configured = true
	return c, nil
}

// NewClientWithModel 使用给定的 ChatModel 创建客户端
func NewClientWithModel(chatModel ecomodel.BaseChatModel, maxAttempts int) *Client {
	return &Client{
		chatModel:   chatModel,
		configured:  chatModel != nil,
		maxAttempts: normalizeAttempts(maxAttempts),
		sleep:       time.Sleep,
	}
}

// Send 发送消息列表并返回助手回复文本
// 任何失败（网络错误、非 2xx、响应体异常）都会重试，指数退避 1s/2s/4s，上限 8s
// 最后一次失败后不再等待，返回包含最后一个底层错误的聚合错误
func (c *Client) Send(ctx context.Context, messages []model.ChatMessage, temperature float32) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	input := toSchemaMessages(messages)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		out, err := c.chatModel.Generate(ctx, input, ecomodel.WithTemperature(temperature))
		if err == nil {
			return out.Content, nil
		}

		lastErr = err
		if attempt < c.maxAttempts {
			c.sleep(backoffDelay(attempt))
		}
	}

	return "", fmt.Errorf("chat completion failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// backoffDelay 第 attempt 次失败后的退避时长：min(2^(attempt-1), 8) 秒
func backoffDelay(attempt int) time.Duration {
	d := time.Duration(1<<(attempt-1)) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func normalizeAttempts(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// toSchemaMessages 将领域消息转换为 eino schema 消息
func toSchemaMessages(messages []model.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, len(messages))
	for i, m := range messages {
		out[i] = &schema.Message{
			Role:    roleToSchema(m.Role),
			Content: m.Content,
		}
	}
	return out
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case model.RoleSystem:
		return schema.System
	case model.RoleAssistant:
		return schema.Assistant
	case model.RoleUser:
		return schema.User
	default:
		return schema.User
	}
}
