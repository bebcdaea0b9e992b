// Package chat 提供后台工作器单元测试
package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ========== Start 测试 ==========

func TestWorkerRunsJobAndReleasesSlot(t *testing.T) {
	w := NewWorker()
	done := make(chan *Result, 1)

	ok := w.Start(context.Background(),
		func(ctx context.Context) (*Result, error) {
			return &Result{Mode: ModeChat, Assistant: "hi"}, nil
		},
		func(res *Result) { done <- res },
		func(err error) { t.Errorf("unexpected failure: %v", err) },
	)
	if !ok {
		t.Fatal("Start() = false, want true")
	}

	select {
	case res := <-done:
		if res.Assistant != "hi" {
			t.Errorf("Assistant = %q, want %q", res.Assistant, "hi")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	// 回调结束后槽位释放，可以再次启动
	waitForIdle(t, w)
	if !w.Start(context.Background(),
		func(ctx context.Context) (*Result, error) { return &Result{}, nil },
		func(*Result) {}, func(error) {},
	) {
		t.Error("worker slot was not released")
	}
}

func TestWorkerReportsFailure(t *testing.T) {
	w := NewWorker()
	failed := make(chan error, 1)

	w.Start(context.Background(),
		func(ctx context.Context) (*Result, error) {
			return nil, errors.New("boom")
		},
		func(*Result) { t.Error("onFinished must not fire on failure") },
		func(err error) { failed <- err },
	)

	select {
	case err := <-failed:
		if err.Error() != "boom" {
			t.Errorf("err = %v, want boom", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure callback")
	}
}

func TestWorkerDropsConcurrentStart(t *testing.T) {
	w := NewWorker()
	release := make(chan struct{})
	done := make(chan struct{})

	ok := w.Start(context.Background(),
		func(ctx context.Context) (*Result, error) {
			<-release
			return &Result{}, nil
		},
		func(*Result) { close(done) },
		func(error) {},
	)
	if !ok {
		t.Fatal("first Start() = false, want true")
	}
	if !w.Running() {
		t.Error("Running() = false while job in flight")
	}

	// 在途期间的第二次启动被静默丢弃
	second := w.Start(context.Background(),
		func(ctx context.Context) (*Result, error) {
			t.Error("dropped job must never run")
			return nil, nil
		},
		func(*Result) {}, func(error) {},
	)
	if second {
		t.Error("second Start() = true, want false")
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestWorkerConcurrentStartExactlyOneWins(t *testing.T) {
	w := NewWorker()
	var started int64
	var mu sync.Mutex
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := w.Start(context.Background(),
				func(ctx context.Context) (*Result, error) {
					<-release
					return &Result{}, nil
				},
				func(*Result) {}, func(error) {},
			)
			if ok {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(release)

	if started != 1 {
		t.Errorf("started = %d, want exactly 1", started)
	}
}

// waitForIdle 等待工作器回到空闲状态
func waitForIdle(t *testing.T, w *Worker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for w.Running() {
		if time.Now().After(deadline) {
			t.Fatal("worker never became idle")
		}
		time.Sleep(time.Millisecond)
	}
}
