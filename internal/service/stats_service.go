package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// StatsStore folds confirmed orders into the reporting tables
type StatsStore interface {
	ApplyOrderConfirmed(ctx context.Context, eventID string, order *models.Order, at time.Time) (bool, error)
}

// StatsService keeps product and user stats in step with confirmed orders
type StatsService struct {
	store  StatsStore
	logger *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store, logger: util.GetLogger()}
}

// HandleOrderConfirmed applies an ORDER_CONFIRMED event exactly once
func (s *StatsService) HandleOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "StatsService.HandleOrderConfirmed")
	defer span.End()

	if event.EventID == "" {
		util.StatsEventsProcessedTotal.WithLabelValues("invalid").Inc()
		s.logger.Warn("Dropping OrderConfirmed event without id", zap.Int64("order_id", event.OrderID))
		return nil
	}

	order := &models.Order{
		ID:         event.OrderID,
		UserID:     event.UserID,
		TotalPrice: event.TotalPrice,
	}
	for _, it := range event.Items {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:   event.OrderID,
			ProductID: it.ProductID,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}

	applied, err := s.store.ApplyOrderConfirmed(ctx, event.EventID, order, event.Timestamp)
	if err != nil {
		util.StatsEventsProcessedTotal.WithLabelValues("error").Inc()
		util.RecordError(span, err)
		return fmt.Errorf("failed to apply order stats: %w", err)
	}

	if !applied {
		util.StatsEventsProcessedTotal.WithLabelValues("duplicate").Inc()
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	util.StatsEventsProcessedTotal.WithLabelValues("applied").Inc()
	s.logger.Info("Order stats updated", zap.Int64("order_id", event.OrderID), zap.String("event_id", event.EventID))
	return nil
}
