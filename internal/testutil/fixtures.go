// Package testutil 提供测试辅助工具
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/repository"
)

// NewTestConfig 创建测试用配置
// 数据目录指向测试临时目录，AI 不配置密钥
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{
			Name:        "next-chat",
			Environment: "test",
			DataDir:     t.TempDir(),
		},
		Storage: config.StorageConfig{
			BaseURL: "http://storage.test",
			Timeout: 5,
		},
		AI: config.AIConfig{
			MaxAttempts: 3,
			OpenAI: config.OpenAIConfig{
				BaseURL: "http://openai.test",
				Model:   "gpt-4o-mini",
				Timeout: 5,
			},
		},
		Chat: config.ChatConfig{
			MaxContextChars: 12000,
			Preferences: config.PreferencesConfig{
				Tone:   "Neutral",
				Format: "Markdown",
				Length: "Medium",
			},
		},
	}
}

// NewTestRepositories 在测试临时目录下创建仓库集合
func NewTestRepositories(t *testing.T) *repository.Repositories {
	t.Helper()
	return repository.NewRepositories(filepath.Join(t.TempDir(), "data"))
}

// AssertHelper 提供断言相关的测试辅助
type AssertHelper struct {
	t *testing.T
}

// NewAssertHelper 创建断言辅助器
func NewAssertHelper(t *testing.T) *AssertHelper {
	return &AssertHelper{t: t}
}

// NoError 断言没有错误
func (h *AssertHelper) NoError(err error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("Unexpected error: %v %v", err, msgAndArgs)
	}
}

// Error 断言有错误
func (h *AssertHelper) Error(err error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err == nil {
		h.t.Fatal("Expected error, got nil")
	}
}

// ErrorContains 断言错误包含指定字符串
func (h *AssertHelper) ErrorContains(err error, substr string, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err == nil {
		h.t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), substr) {
		h.t.Fatalf("Error %q does not contain %q %v", err.Error(), substr, msgAndArgs)
	}
}

// Equal 断言相等
func (h *AssertHelper) Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	h.t.Helper()
	if expected != actual {
		h.t.Fatalf("Expected %v, got %v %v", expected, actual, msgAndArgs)
	}
}

// True 断言为真
func (h *AssertHelper) True(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !condition {
		h.t.Fatalf("Expected true, got false %v", msgAndArgs)
	}
}

// False 断言为假
func (h *AssertHelper) False(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if condition {
		h.t.Fatalf("Expected false, got true %v", msgAndArgs)
	}
}
