// Package chat 负责聊天会话状态与后台请求的编排
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/ai"
	"github.com/ashwinyue/next-chat/internal/service/filecontext"
)

// 默认采样温度
const defaultTemperature = 0.2

// Orchestrator 驱动一次对话的完整流程
// 会话状态的所有修改都经过内部互斥锁串行化，
// 网络请求本身只在 Worker 的后台 goroutine 中执行
type Orchestrator struct {
	cfg     *config.Config
	client  *ai.Client
	loader  *filecontext.Loader
	history *repository.HistoryRepository
	worker  *Worker

	mu           sync.Mutex
	started      bool
	temporary    bool
	currentID    string
	messages     []model.ChatMessage
	fileRefs     []model.FileRef
	fileContexts []*model.FileContext
}

// NewOrchestrator 创建聊天编排器
func NewOrchestrator(cfg *config.Config, client *ai.Client, loader *filecontext.Loader, history *repository.HistoryRepository) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		loader:  loader,
		history: history,
		worker:  NewWorker(),
	}
}

// NewChat 开始一个全新对话
// 清空内存中的消息与文件上下文，临时/持久的选择在首条消息发出时锁定
func (o *Orchestrator) NewChat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = false
	o.temporary = false
	o.currentID = ""
	o.messages = nil
	o.fileRefs = nil
	o.fileContexts = nil
}

// SetTemporary 设置临时对话标记
// 首条消息发出之后不再允许切换
func (o *Orchestrator) SetTemporary(temporary bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.temporary = temporary
}

// Started 对话是否已经开始
func (o *Orchestrator) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// Temporary 是否为临时对话
func (o *Orchestrator) Temporary() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.temporary
}

// CurrentID 当前会话 ID，临时对话或未开始时为空
func (o *Orchestrator) CurrentID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentID
}

// Busy 是否有后台请求在途
func (o *Orchestrator) Busy() bool {
	return o.worker.Running()
}

// Messages 返回内存中消息历史的快照
func (o *Orchestrator) Messages() []model.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.ChatMessage{}, o.messages...)
}

// Files 返回当前附加的文件引用快照
func (o *Orchestrator) Files() []model.FileRef {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.FileRef{}, o.fileRefs...)
}

// AttachFiles 解析并附加一组文件作为聊天上下文
// 任何一个文件解析失败都不会改动现有状态
func (o *Orchestrator) AttachFiles(ctx context.Context, refs []model.FileRef) error {
	if len(refs) == 0 {
		return o.ClearFiles()
	}

	contexts, err := o.loader.ResolveMany(ctx, refs)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.fileRefs = append([]model.FileRef{}, refs...)
	o.fileContexts = contexts
	o.persistLocked()
	o.mu.Unlock()
	return nil
}

// ClearFiles 移除所有附加文件
func (o *Orchestrator) ClearFiles() error {
	o.mu.Lock()
	o.fileRefs = nil
	o.fileContexts = nil
	o.persistLocked()
	o.mu.Unlock()
	return nil
}

// SendMessage 追加一条用户消息并启动后台聊天请求
// 空输入不做任何事；已有请求在途时本次请求被静默丢弃（消息保留在内存历史中）
// 返回是否真正启动了后台请求
func (o *Orchestrator) SendMessage(ctx context.Context, text string, onDone func(assistant string), onErr func(error)) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	o.mu.Lock()
	if err := o.beginLocked(); err != nil {
		o.mu.Unlock()
		if onErr != nil {
			onErr(err)
		}
		return false
	}
	o.messages = append(o.messages, model.ChatMessage{Role: model.RoleUser, Content: text})
	request := o.buildRequestMessagesLocked()
	o.mu.Unlock()

	return o.worker.Start(ctx,
		func(ctx context.Context) (*Result, error) {
			assistant, err := o.client.Send(ctx, request, defaultTemperature)
			if err != nil {
				return nil, err
			}
			return &Result{Mode: ModeChat, Assistant: assistant}, nil
		},
		func(result *Result) { o.finishChat(result, onDone) },
		func(err error) { o.fail(err, onErr) },
	)
}

// SummarizeFile 启动单个文件的摘要请求
// 与首条聊天消息一样会锁定临时/持久选择并按需创建会话
func (o *Orchestrator) SummarizeFile(ctx context.Context, ref model.FileRef, onDone func(assistant string), onErr func(error)) bool {
	o.mu.Lock()
	if err := o.beginLocked(); err != nil {
		o.mu.Unlock()
		if onErr != nil {
			onErr(err)
		}
		return false
	}
	prefs := o.cfg.Chat.Preferences
	o.mu.Unlock()

	return o.worker.Start(ctx,
		func(ctx context.Context) (*Result, error) {
			fc, err := o.loader.Resolve(ctx, ref)
			if err != nil {
				return nil, err
			}

			messages := []model.ChatMessage{
				buildSystemMessage(prefs),
				buildFileContextMessage(fc),
				{Role: model.RoleUser, Content: summaryPrompt},
			}
			assistant, err := o.client.Send(ctx, messages, defaultTemperature)
			if err != nil {
				return nil, err
			}
			return &Result{Mode: ModeSummary, Assistant: assistant, Messages: messages}, nil
		},
		func(result *Result) { o.finishSummary(result, onDone) },
		func(err error) { o.fail(err, onErr) },
	)
}

// OpenSession 恢复一个历史会话
// 文件内容不持久化，重新打开时按引用重新拉取；
// 拉取失败时清空文件引用并返回错误，消息历史保持可用
func (o *Orchestrator) OpenSession(ctx context.Context, session model.ChatSession) error {
	o.mu.Lock()
	o.temporary = false
	o.started = true
	o.currentID = session.ID
	o.messages = append([]model.ChatMessage{}, session.Messages...)
	o.fileRefs = append([]model.FileRef{}, session.Files...)
	o.fileContexts = nil
	refs := append([]model.FileRef{}, session.Files...)
	o.mu.Unlock()

	if len(refs) == 0 {
		return nil
	}

	contexts, err := o.loader.ResolveMany(ctx, refs)
	if err != nil {
		o.mu.Lock()
		o.fileRefs = nil
		o.fileContexts = nil
		o.mu.Unlock()
		return fmt.Errorf("failed to restore file context: %w", err)
	}

	o.mu.Lock()
	o.fileContexts = contexts
	o.mu.Unlock()
	return nil
}

// LeaveChat 离开当前对话
// 临时对话的全部状态被无条件丢弃，持久对话保持原样可恢复
func (o *Orchestrator) LeaveChat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.temporary {
		return
	}
	o.started = false
	o.temporary = false
	o.currentID = ""
	o.messages = nil
	o.fileRefs = nil
	o.fileContexts = nil
}

// beginLocked 首次发送时锁定临时/持久选择
// 持久对话在这里创建会话记录，恢复的会话沿用原有 ID
func (o *Orchestrator) beginLocked() error {
	if o.started {
		return nil
	}
	if !o.temporary && o.currentID == "" {
		id, err := o.history.CreateSession("Chat", o.fileRefs)
		if err != nil {
			return fmt.Errorf("failed to create chat session: %w", err)
		}
		o.currentID = id
	}
	o.started = true
	return nil
}

// buildRequestMessagesLocked 构建发往模型的完整消息列表
// 顺序：系统消息 → 按附加顺序的文件上下文 → 全部历史消息
func (o *Orchestrator) buildRequestMessagesLocked() []model.ChatMessage {
	request := []model.ChatMessage{buildSystemMessage(o.cfg.Chat.Preferences)}
	for _, fc := range o.fileContexts {
		request = append(request, buildFileContextMessage(fc))
	}
	return append(request, o.messages...)
}

// finishChat 聊天请求成功的终态处理
func (o *Orchestrator) finishChat(result *Result, onDone func(string)) {
	o.mu.Lock()
	if result.Assistant != "" {
		o.messages = append(o.messages, model.ChatMessage{Role: model.RoleAssistant, Content: result.Assistant})
	}
	o.persistLocked()
	o.mu.Unlock()

	if onDone != nil {
		onDone(result.Assistant)
	}
}

// finishSummary 摘要请求成功的终态处理
// 构建的消息列表成为新的会话历史，助手回复追加在其后
func (o *Orchestrator) finishSummary(result *Result, onDone func(string)) {
	o.mu.Lock()
	o.messages = append([]model.ChatMessage{}, result.Messages...)
	if result.Assistant != "" {
		o.messages = append(o.messages, model.ChatMessage{Role: model.RoleAssistant, Content: result.Assistant})
	}
	o.persistLocked()
	o.mu.Unlock()

	if onDone != nil {
		onDone(result.Assistant)
	}
}

// fail 失败的终态处理：不改动消息历史，只上报一条可读错误
func (o *Orchestrator) fail(err error, onErr func(error)) {
	if onErr != nil {
		onErr(fmt.Errorf("ai chat failed: %w", err))
	}
}

// persistLocked 将当前会话写回历史仓库
// 只有持久对话在开始之后才会落盘，网络往返完成前绝不投机写入
func (o *Orchestrator) persistLocked() {
	if o.temporary || !o.started || o.currentID == "" {
		return
	}
	if err := o.history.UpdateSession(o.currentID, o.messages, o.fileRefs); err != nil {
		log.Printf("Warning: failed to persist chat session %s: %v", o.currentID, err)
	}
}
