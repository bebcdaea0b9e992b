package chat

import (
	"fmt"
	"strings"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
)

// 基础系统提示词
const systemPrompt = "You are a helpful assistant. Use the provided file context when relevant. " +
	"If the question is not about the file, answer normally."

// 文件摘要提示词
const summaryPrompt = "Please provide a short summary of the file content."

// buildAIPreferences 将偏好配置序列化为追加到系统提示词的自由文本
func buildAIPreferences(p config.PreferencesConfig) string {
	parts := []string{
		"Tone: " + valueOr(p.Tone, "Neutral"),
		"Format: " + valueOr(p.Format, "Markdown"),
		"Length: " + valueOr(p.Length, "Medium"),
	}
	if p.Notes != "" {
		parts = append(parts, "Notes: "+p.Notes)
	}
	return strings.Join(parts, "\n")
}

// buildSystemMessage 构建带用户偏好的系统消息
func buildSystemMessage(p config.PreferencesConfig) model.ChatMessage {
	content := systemPrompt
	if prefs := buildAIPreferences(p); prefs != "" {
		content = content + "\n\nUser preferences:\n" + prefs
	}
	return model.ChatMessage{Role: model.RoleSystem, Content: content}
}

// buildFileContextMessage 把单个文件上下文包装为合成的用户消息
func buildFileContextMessage(fc *model.FileContext) model.ChatMessage {
	return model.ChatMessage{
		Role:    model.RoleUser,
		Content: fmt.Sprintf("File name: %s\n\nFile content:\n%s", fc.Name, fc.Content),
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
