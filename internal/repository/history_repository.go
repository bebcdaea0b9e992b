package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ashwinyue/next-chat/internal/model"
)

// 聊天历史在设置文件中的键
const historyKey = "chat/history"

// SortMode 会话排序模式
type SortMode string

const (
	SortNewestFirst SortMode = "newest_first"
	SortOldestFirst SortMode = "oldest_first"
	SortTitleAsc    SortMode = "title_asc"
	SortTitleDesc   SortMode = "title_desc"
)

// HistoryRepository 聊天会话数据访问
// 整个历史作为一个 JSON 数组持久化在设置仓库的单个键下
type HistoryRepository struct {
	settings *SettingsRepository
	now      func() time.Time
}

// NewHistoryRepository 创建聊天历史仓库
func NewHistoryRepository(settings *SettingsRepository) *HistoryRepository {
	return &HistoryRepository{
		settings: settings,
		now:      time.Now,
	}
}

// Load 读取全部会话（持久化顺序）
// 存储损坏时返回空列表，绝不报错
func (r *HistoryRepository) Load() []model.ChatSession {
	raw := r.settings.Get(historyKey, "[]")

	var sessions []model.ChatSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return []model.ChatSession{}
	}
	if sessions == nil {
		return []model.ChatSession{}
	}
	return sessions
}

// Save 全量覆盖写回会话列表
func (r *HistoryRepository) Save(sessions []model.ChatSession) error {
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	return r.settings.Set(historyKey, string(data))
}

// CreateSession 创建新会话并插入列表头部，立即持久化
// 返回按时间生成的会话 ID
func (r *HistoryRepository) CreateSession(title string, files []model.FileRef) (string, error) {
	now := r.now()
	session := model.ChatSession{
		ID:        newChatID(now),
		Title:     title,
		Messages:  []model.ChatMessage{},
		Files:     append([]model.FileRef{}, files...),
		UpdatedAt: model.FormatUpdatedAt(now),
	}

	sessions := append([]model.ChatSession{session}, r.Load()...)
	if err := r.Save(sessions); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return session.ID, nil
}

// UpdateSession 替换指定会话的消息与文件引用并刷新时间戳
// ID 不存在时不做任何修改
func (r *HistoryRepository) UpdateSession(id string, messages []model.ChatMessage, files []model.FileRef) error {
	sessions := r.Load()
	for i := range sessions {
		if sessions[i].ID == id {
			sessions[i].Messages = append([]model.ChatMessage{}, messages...)
			sessions[i].Files = append([]model.FileRef{}, files...)
			sessions[i].UpdatedAt = model.FormatUpdatedAt(r.now())
			break
		}
	}
	return r.Save(sessions)
}

// RenameSession 重命名会话
// 新标题去除空白后为空时返回校验错误
func (r *HistoryRepository) RenameSession(id, newTitle string) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return fmt.Errorf("chat title must not be empty")
	}

	sessions := r.Load()
	renamed := false
	for i := range sessions {
		if sessions[i].ID == id {
			sessions[i].Title = newTitle
			sessions[i].UpdatedAt = model.FormatUpdatedAt(r.now())
			renamed = true
			break
		}
	}
	if !renamed {
		return fmt.Errorf("chat not found: %s", id)
	}
	return r.Save(sessions)
}

// DeleteSessions 删除匹配 ID 的会话
func (r *HistoryRepository) DeleteSessions(ids []string) error {
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
	}

	sessions := r.Load()
	remaining := make([]model.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if !removed[s.ID] {
			remaining = append(remaining, s)
		}
	}
	return r.Save(remaining)
}

// Sort 按给定模式排序会话
// 未知模式按默认的新→旧排序，时间戳解析失败的会话按零值时间参与排序
func (r *HistoryRepository) Sort(sessions []model.ChatSession, mode SortMode) []model.ChatSession {
	entries := append([]model.ChatSession{}, sessions...)

	switch mode {
	case SortOldestFirst:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].UpdatedTime().Before(entries[j].UpdatedTime())
		})
	case SortTitleAsc:
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
		})
	case SortTitleDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Title) > strings.ToLower(entries[j].Title)
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].UpdatedTime().After(entries[j].UpdatedTime())
		})
	}
	return entries
}

// Search 按标题做大小写不敏感的子串过滤
func (r *HistoryRepository) Search(sessions []model.ChatSession, query string) []model.ChatSession {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]model.ChatSession{}, sessions...)
	}

	matched := make([]model.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(s.Title), query) {
			matched = append(matched, s)
		}
	}
	return matched
}

// FormatItems 生成历史列表的显示文本
func (r *HistoryRepository) FormatItems(sessions []model.ChatSession) []string {
	items := make([]string, 0, len(sessions))
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "Chat"
		}
		if s.UpdatedAt != "" {
			items = append(items, fmt.Sprintf("%s  (%s)", title, s.UpdatedAt))
		} else {
			items = append(items, title)
		}
	}
	return items
}

// newChatID 生成按时间单调递增的会话 ID（秒 + 微秒）
func newChatID(t time.Time) string {
	return t.Format("20060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}
