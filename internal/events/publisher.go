package events

import (
	"context"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

// Sink is what Publisher writes to; *kafka.Producer implements it.
type Sink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

var (
	_ orders.Notifier        = (*Publisher)(nil)
	_ catalog.ChangeNotifier = (*Publisher)(nil)
	_ Sink                   = (*kafkax.Producer)(nil)
)

// Publisher turns committed orders and catalog writes into Kafka events.
// It implements orders.Notifier and catalog.ChangeNotifier.
type Publisher struct {
	Orders   Sink // order.placed
	Changes  Sink // inventory.changed
	Producer string
	Now      func() time.Time
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p *Publisher) envelope(ctx context.Context, eventType, correlationID string, payload any) Envelope {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    p.now(),
		Producer:      p.Producer,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	return ev
}

func headers(eventType string) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte("1")},
	}
}

func (p *Publisher) OrderPlaced(ctx context.Context, o orders.Order, changes []orders.StockChange) {
	if p.Orders != nil {
		ev := p.envelope(ctx, EventOrderPlaced, o.ID, OrderPlacedPayload{Order: o, Stock: changes})
		p.Orders.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev), headers(EventOrderPlaced)...)
	}

	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ProductID)
	}
	p.CollectionChanged(ctx, catalog.CollectionProducts, ids...)
	p.CollectionChanged(ctx, catalog.CollectionOrders, o.ID)
}

func (p *Publisher) CollectionChanged(ctx context.Context, collection string, ids ...string) {
	if p.Changes == nil {
		return
	}
	ev := p.envelope(ctx, EventCollectionChanged, collection, CollectionChangedPayload{Collection: collection, IDs: ids})
	p.Changes.Publish(PartitionKey(collection), kafkax.MustMarshal(ev), headers(EventCollectionChanged)...)
}
