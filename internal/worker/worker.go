package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"
)

// MessageSource feeds order events to a handler until its context ends
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// StatsWorker folds order events from the broker into the reporting tables
type StatsWorker struct {
	source       MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(source MessageSource, stats *service.StatsService) *StatsWorker {
	w := &StatsWorker{
		source:       source,
		eventHandler: broker.NewEventHandler(),
		logger:       util.GetLogger().Named("stats-worker"),
	}

	w.eventHandler.OnOrderCreated(w.logOrderCreated)
	w.eventHandler.OnOrderConfirmed(stats.HandleOrderConfirmed)

	return w
}

func (w *StatsWorker) logOrderCreated(_ context.Context, event *models.OrderCreatedEvent) error {
	w.logger.Info("Order placed",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("user_id", event.UserID),
		zap.String("total_price", event.TotalPrice.StringFixed(2)),
		zap.Int("items", len(event.Items)))
	return nil
}

// Start blocks consuming events until ctx is cancelled
func (w *StatsWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stats worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the underlying consumer
func (w *StatsWorker) Stop() error {
	w.logger.Info("Stopping stats worker")
	return w.source.Close()
}

// RunStatsWorker keeps a stats worker running until ctx ends. When a worker
// stops on an error its consumer is closed and replaced by a fresh one, which
// resumes from the last committed offset.
func RunStatsWorker(ctx context.Context, newSource func() MessageSource, stats *service.StatsService, restartDelay time.Duration) {
	logger := util.GetLogger().Named("stats-worker")

	for {
		w := NewStatsWorker(newSource(), stats)
		err := w.Start(ctx)
		if stopErr := w.Stop(); stopErr != nil {
			logger.Warn("Failed to stop stats worker", zap.Error(stopErr))
		}

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("Stats worker stopped, restarting", zap.Error(err), zap.Duration("delay", restartDelay))

		select {
		case <-time.After(restartDelay):
		case <-ctx.Done():
			return
		}
	}
}
