package subscription

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orderlink/server/internal/shared/config"
)

// renewalBatchSize caps how many due subscriptions one tick charges.
const renewalBatchSize = 50

// Scheduler drives the periodic renewal and confirmation-sweep loops.
type Scheduler struct {
	service *Service
	cfg     config.SubscriptionConfig
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for the subscription service.
func NewScheduler(service *Service, cfg config.SubscriptionConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start launches the background loops. Call Stop to shut them down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.loop(ctx, s.cfg.RenewalInterval, "renewal", func(ctx context.Context) error {
		return s.service.RenewDue(ctx, renewalBatchSize)
	})
	go s.loop(ctx, s.cfg.SweepInterval, "confirmation sweep", func(ctx context.Context) error {
		return s.service.SweepExpired(ctx)
	})
}

// Stop cancels the loops and waits for in-flight work to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, name string, run func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				s.logger.Error("scheduled task failed",
					zap.String("task", name),
					zap.Error(err),
				)
			}
		}
	}
}
