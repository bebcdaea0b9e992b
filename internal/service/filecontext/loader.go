// Package filecontext 负责拉取远程文件并提取注入提示词的文本上下文
package filecontext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
)

// 文件下载的错误类型
// 401/403/404 映射为各自的终态错误，调用方用 errors.Is 区分
var (
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrForbidden      = errors.New("no access to this file")
	ErrNotFound       = errors.New("file not found")
	ErrNoReadableText = errors.New("file contains no readable text")
	ErrMissingFileID  = errors.New("selected entry has no file id")
)

// Loader 文件上下文加载器
type Loader struct {
	baseURL    string
	httpClient *http.Client
	maxChars   int

	mu    sync.RWMutex
	token string
}

// NewLoader 创建加载器
func NewLoader(cfg *config.Config) *Loader {
	return NewLoaderWithClient(cfg, &http.Client{
		Timeout: time.Duration(cfg.Storage.Timeout) * time.Second,
	})
}

// NewLoaderWithClient 使用给定 HTTP 客户端创建加载器
func NewLoaderWithClient(cfg *config.Config, httpClient *http.Client) *Loader {
	maxChars := cfg.Chat.MaxContextChars
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &Loader{
		baseURL:    strings.TrimRight(cfg.Storage.BaseURL, "/"),
		httpClient: httpClient,
		maxChars:   maxChars,
	}
}

// SetToken 更新存储后端的访问令牌
func (l *Loader) SetToken(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.token = token
}

// Resolve 下载单个文件并提取文本上下文
// 内容硬性截断到配置的最大字符数，以限制提示词体积
func (l *Loader) Resolve(ctx context.Context, ref model.FileRef) (*model.FileContext, error) {
	if ref.ID == "" {
		return nil, ErrMissingFileID
	}

	name := ref.Name
	if name == "" {
		name = "file_" + ref.ID
	}

	contentType, data, err := l.download(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	text, err := extractText(ctx, name, contentType, data)
	if err != nil {
		return nil, err
	}

	return &model.FileContext{
		ID:      ref.ID,
		Name:    name,
		Content: truncateRunes(text, l.maxChars),
	}, nil
}

// ResolveMany 按顺序解析一组文件引用
// 任何一个文件失败都会使整批失败，不存在部分成功
func (l *Loader) ResolveMany(ctx context.Context, refs []model.FileRef) ([]*model.FileContext, error) {
	contexts := make([]*model.FileContext, 0, len(refs))
	for _, ref := range refs {
		fc, err := l.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, fc)
	}
	return contexts, nil
}

// download 通过存储 API 下载文件字节
func (l *Loader) download(ctx context.Context, fileID string) (string, []byte, error) {
	url := fmt.Sprintf("%s/files/%s/download", l.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build download request: %w", err)
	}

	l.mu.RLock()
	token := l.token
	l.mu.RUnlock()
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", nil, ErrSessionExpired
	case http.StatusForbidden:
		return "", nil, ErrForbidden
	case http.StatusNotFound:
		return "", nil, ErrNotFound
	default:
		return "", nil, fmt.Errorf("failed to download file (HTTP %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file body: %w", err)
	}

	return strings.ToLower(resp.Header.Get("Content-Type")), data, nil
}

// extractText 从下载的字节中提取文本
// PDF 按页提取并用换行拼接非空页，其余内容按 UTF-8 宽容解码
func extractText(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var content string

	if strings.HasSuffix(strings.ToLower(name), ".pdf") || strings.HasPrefix(contentType, "application/pdf") {
		fileParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
		if err != nil {
			return "", fmt.Errorf("failed to create pdf parser: %w", err)
		}

		docs, err := fileParser.Parse(ctx, bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("failed to parse pdf: %w", err)
		}

		pages := make([]string, 0, len(docs))
		for _, doc := range docs {
			if page := strings.TrimSpace(doc.Content); page != "" {
				pages = append(pages, page)
			}
		}
		content = strings.Join(pages, "\n")
	} else {
		content = strings.ToValidUTF8(string(data), "�")
	}

	if strings.TrimSpace(content) == "" {
		return "", ErrNoReadableText
	}
	return content, nil
}

// truncateRunes 按字符数截断，避免把多字节字符切坏
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
