// Package ai 提供聊天客户端单元测试
package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
)

// fakeChatModel 按脚本返回结果的 ChatModel
// failures 次失败之后返回 reply
type fakeChatModel struct {
	failures int
	reply    string
	err      error

	calls int
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...ecomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...ecomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

// newTestClient 创建使用 fake 模型的客户端并记录退避等待
func newTestClient(fake *fakeChatModel, maxAttempts int) (*Client, *[]time.Duration) {
	c := NewClientWithModel(fake, maxAttempts)
	var delays []time.Duration
	c.sleep = func(d time.Duration) { delays = append(delays, d) }
	return c, &delays
}

// ========== Send 测试 ==========

func TestSendSuccess(t *testing.T) {
	fake := &fakeChatModel{reply: "hello there"}
	c, delays := newTestClient(fake, 3)

	got, err := c.Send(context.Background(), []model.ChatMessage{
		{Role: model.RoleUser, Content: "hi"},
	}, 0.2)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got != "hello there" {
		t.Errorf("Send() = %q, want %q", got, "hello there")
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
	if len(*delays) != 0 {
		t.Errorf("unexpected backoff waits: %v", *delays)
	}
}

func TestSendRetriesWithBackoff(t *testing.T) {
	fake := &fakeChatModel{failures: 2, reply: "recovered", err: errors.New("rate limited")}
	c, delays := newTestClient(fake, 3)

	got, err := c.Send(context.Background(), []model.ChatMessage{
		{Role: model.RoleUser, Content: "hi"},
	}, 0.2)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got != "recovered" {
		t.Errorf("Send() = %q, want %q", got, "recovered")
	}
	if fake.calls != 3 {
		t.Errorf("calls = %d, want 3", fake.calls)
	}

	// 退避序列：1s, 2s
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("backoff waits = %v, want %v", *delays, want)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestSendExhaustsAttempts(t *testing.T) {
	underlying := errors.New("boom")
	fake := &fakeChatModel{failures: 10, err: underlying}
	c, delays := newTestClient(fake, 3)

	_, err := c.Send(context.Background(), nil, 0.2)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, underlying) {
		t.Errorf("error should wrap the last underlying error, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error message should mention attempt count, got %q", err.Error())
	}
	if fake.calls != 3 {
		t.Errorf("calls = %d, want 3", fake.calls)
	}
	// 最后一次失败之后不再等待
	if len(*delays) != 2 {
		t.Errorf("backoff waits = %v, want exactly 2 entries", *delays)
	}
}

func TestSendSingleAttemptNeverWaits(t *testing.T) {
	fake := &fakeChatModel{failures: 10, err: errors.New("boom")}
	c, delays := newTestClient(fake, 1)

	if _, err := c.Send(context.Background(), nil, 0.2); err == nil {
		t.Fatal("expected error, got nil")
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
	if len(*delays) != 0 {
		t.Errorf("backoff waits = %v, want none", *delays)
	}
}

func TestSendNotConfigured(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{MaxAttempts: 3}}
	c, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = c.Send(context.Background(), []model.ChatMessage{
		{Role: model.RoleUser, Content: "hi"},
	}, 0.2)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

// ========== backoffDelay 测试 ==========

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 1, expected: 1 * time.Second},
		{attempt: 2, expected: 2 * time.Second},
		{attempt: 3, expected: 4 * time.Second},
		{attempt: 4, expected: 8 * time.Second},
		{attempt: 5, expected: 8 * time.Second}, // 上限 8 秒
		{attempt: 10, expected: 8 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != tt.expected {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

// ========== toSchemaMessages 测试 ==========

func TestToSchemaMessages(t *testing.T) {
	in := []model.ChatMessage{
		{Role: model.RoleSystem, Content: "sys"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: "weird", Content: "fallback"},
	}

	out := toSchemaMessages(in)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}

	wantRoles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.User}
	for i, m := range out {
		if m.Role != wantRoles[i] {
			t.Errorf("out[%d].Role = %v, want %v", i, m.Role, wantRoles[i])
		}
		if m.Content != in[i].Content {
			t.Errorf("out[%d].Content = %q, want %q", i, m.Content, in[i].Content)
		}
	}
}
