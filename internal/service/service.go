// Package service 聚合所有业务服务
package service

import (
	"context"
	"fmt"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/ai"
	"github.com/ashwinyue/next-chat/internal/service/chat"
	"github.com/ashwinyue/next-chat/internal/service/filecontext"
)

// Services 服务集合
type Services struct {
	AI          *ai.Client
	FileContext *filecontext.Loader
	Chat        *chat.Orchestrator
}

// NewServices 创建并装配全部服务
func NewServices(ctx context.Context, cfg *config.Config, repos *repository.Repositories) (*Services, error) {
	client, err := ai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	loader := filecontext.NewLoader(cfg)
	orchestrator := chat.NewOrchestrator(cfg, client, loader, repos.History)

	return &Services{
		AI:          client,
		FileContext: loader,
		Chat:        orchestrator,
	}, nil
}
