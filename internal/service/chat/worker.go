package chat

import (
	"context"
	"log"
	"sync"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/google/uuid"
)

// Mode 后台任务类型
type Mode string

const (
	// ModeChat 发送累积的聊天消息
	ModeChat Mode = "chat"
	// ModeSummary 拉取单个文件并生成摘要
	ModeSummary Mode = "summary"
)

// Result 后台任务的成功结果
type Result struct {
	Mode      Mode
	Assistant string
	// 摘要任务构建的完整消息列表，成功后作为新的会话历史
	Messages []model.ChatMessage
}

// Worker 后台执行单元
// 全局同一时刻最多一个任务在途，重复启动会被静默丢弃
// 每个任务恰好触发一次终态回调（成功或失败），之后释放执行槽
type Worker struct {
	mu      sync.Mutex
	running bool
}

// NewWorker 创建后台执行单元
func NewWorker() *Worker {
	return &Worker{}
}

// Running 是否有任务在途
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start 启动一个后台任务
// 已有任务在途时返回 false 且不做任何事
func (w *Worker) Start(ctx context.Context, run func(context.Context) (*Result, error), onFinished func(*Result), onFailed func(error)) bool {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return false
	}
	w.running = true
	w.mu.Unlock()

	runID := uuid.New().String()
	go func() {
		result, err := run(ctx)
		if err != nil {
			log.Printf("chat worker %s failed: %v", runID, err)
			onFailed(err)
		} else {
			onFinished(result)
		}

		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()
	return true
}
