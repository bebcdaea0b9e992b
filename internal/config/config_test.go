// Package config 提供配置加载单元测试
package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ========== Load 测试 ==========

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "next-chat" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "next-chat")
	}
	if cfg.AI.MaxAttempts != 3 {
		t.Errorf("AI.MaxAttempts = %d, want 3", cfg.AI.MaxAttempts)
	}
	if cfg.AI.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("AI.OpenAI.Model = %q", cfg.AI.OpenAI.Model)
	}
	if cfg.Storage.BaseURL != "http://localhost:8000" {
		t.Errorf("Storage.BaseURL = %q", cfg.Storage.BaseURL)
	}
	if cfg.Chat.MaxContextChars != 12000 {
		t.Errorf("Chat.MaxContextChars = %d, want 12000", cfg.Chat.MaxContextChars)
	}
	if cfg.Chat.Preferences.Tone != "Neutral" {
		t.Errorf("Preferences.Tone = %q, want Neutral", cfg.Chat.Preferences.Tone)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Name != "next-chat" {
		t.Errorf("App.Name = %q, want default", cfg.App.Name)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  baseUrl: http://files.internal:9000
chat:
  preferences:
    tone: Friendly
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	// 环境变量优先于配置文件
	t.Setenv("NEXT_CHAT_AI_OPENAI_MODEL", "gpt-4o")
	t.Setenv("NEXT_CHAT_CHAT_MAXCONTEXTCHARS", "5000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.BaseURL != "http://files.internal:9000" {
		t.Errorf("Storage.BaseURL = %q", cfg.Storage.BaseURL)
	}
	if cfg.Chat.Preferences.Tone != "Friendly" {
		t.Errorf("Preferences.Tone = %q, want Friendly", cfg.Chat.Preferences.Tone)
	}
	if cfg.AI.OpenAI.Model != "gpt-4o" {
		t.Errorf("AI.OpenAI.Model = %q, want env override", cfg.AI.OpenAI.Model)
	}
	if cfg.Chat.MaxContextChars != 5000 {
		t.Errorf("Chat.MaxContextChars = %d, want 5000", cfg.Chat.MaxContextChars)
	}
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\nnot yaml at all ["), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
