package worker

import (
	"context"
	"errors"
	"time"

	"github.com/bazar-next/internal/config"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	disposalSweepInterval      = time.Hour
	notificationSweepInterval  = 5 * time.Minute
	notificationSweepBatchSize = 100
	refundSweepInterval        = 5 * time.Minute
	// refundSweepGracePeriod 给正常队列消费留出的时间窗，只重投超窗的行
	refundSweepGracePeriod = 10 * time.Minute
	refundSweepBatchSize   = 100
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.ReturnsService != nil {
		go s.runDisposalSweepLoop(ctx)
		go s.runRefundSweepLoop(ctx)
	}
	if s.consumer != nil && s.consumer.NotificationService != nil {
		go s.runNotificationSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runDisposalSweepLoop 周期处置超时未取回的退货
func (s *Service) runDisposalSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReturnsService == nil {
		return
	}
	runOnce := func() {
		disposed := s.consumer.ReturnsService.DisposeExpiredReturns(time.Now())
		if disposed > 0 {
			logger.Infow("worker_returns_disposed", "count", disposed)
		}
	}
	runOnce()

	ticker := time.NewTicker(disposalSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runRefundSweepLoop 兜底重投滞留在退款发起状态的退货任务
func (s *Service) runRefundSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReturnsService == nil {
		return
	}
	ticker := time.NewTicker(refundSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-refundSweepGracePeriod)
			s.consumer.ReturnsService.ReenqueueStaleRefunds(cutoff, refundSweepBatchSize)
		}
	}
}

// runNotificationSweepLoop 兜底投递滞留的待发通知
func (s *Service) runNotificationSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.NotificationService == nil {
		return
	}
	ticker := time.NewTicker(notificationSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.consumer.NotificationService.DispatchPending(ctx, notificationSweepBatchSize)
		}
	}
}
