package model

import "time"

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UpdatedAtLayout 会话时间戳的持久化格式（ISO 8601，秒精度）
const UpdatedAtLayout = "2006-01-02T15:04:05"

// ChatMessage 聊天消息
// 一旦追加即不可变，顺序就是发送给模型的提示词顺序
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FileRef 远程文件引用
// 只持久化引用本身，文件内容每次打开会话时重新拉取
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileContext 已解析的文件上下文（仅存在于内存中）
type FileContext struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ChatSession 聊天会话
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	Files     []FileRef     `json:"files"`
	UpdatedAt string        `json:"updated_at"`
}

// UpdatedTime 解析会话时间戳
// 解析失败时返回零值时间，排序时排在最前/最后而不会报错
func (s *ChatSession) UpdatedTime() time.Time {
	return ParseUpdatedAt(s.UpdatedAt)
}

// ParseUpdatedAt 宽容地解析持久化的时间戳
func ParseUpdatedAt(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	layouts := []string{
		UpdatedAtLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatUpdatedAt 格式化会话时间戳
func FormatUpdatedAt(t time.Time) string {
	return t.Format(UpdatedAtLayout)
}
