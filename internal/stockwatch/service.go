package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-inventory-orders/internal/events"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Alert is one product whose stock fell to or below the threshold.
type Alert struct {
	OrderID   string
	ProductID string
	Stock     int
	Threshold int
}

// Service is the order.placed handler of the stock watch worker.
type Service struct {
	Threshold   int
	Redis       redis.Cmdable // optional; dedups redelivered events
	Metrics     *metrics.Orders
	Log         *zap.Logger
	ServiceName string

	// OnAlert is called for every alert after it is logged.
	OnAlert func(Alert)
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: nothing to retry
		s.Log.Warn("undecodable event skipped", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != events.EventOrderPlaced {
		return nil
	}

	if s.Redis != nil {
		fresh, err := redisx.Claim(ctx, s.Redis, s.ServiceName, env.EventID)
		if err != nil {
			return fmt.Errorf("claim event %s: %w", env.EventID, err)
		}
		if !fresh {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[events.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Warn("bad order.placed payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	for _, a := range s.Check(p) {
		s.Metrics.LowStock(a.ProductID)
		s.Log.Warn("low stock",
			zap.String("order_id", a.OrderID),
			zap.String("product_id", a.ProductID),
			zap.Int("stock", a.Stock),
			zap.Int("threshold", a.Threshold),
			zap.String("trace_id", env.TraceID))
		if s.OnAlert != nil {
			s.OnAlert(a)
		}
	}
	return nil
}

// Check lists the stock changes of an order that end at or below the threshold.
func (s *Service) Check(p events.OrderPlacedPayload) []Alert {
	var out []Alert
	for _, c := range p.Stock {
		if c.New <= s.Threshold {
			out = append(out, Alert{OrderID: p.Order.ID, ProductID: c.ProductID, Stock: c.New, Threshold: s.Threshold})
		}
	}
	return out
}
