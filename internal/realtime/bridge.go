package realtime

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/ariefcatur/go-inventory-orders/internal/events"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

var (
	_ orders.Notifier        = (*Hub)(nil)
	_ catalog.ChangeNotifier = (*Hub)(nil)
)

// HandleChange is an inventory.changed consumer handler that pokes the hub.
// Malformed messages are skipped so they do not block the partition.
func (h *Hub) HandleChange(_ context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.EventType != events.EventCollectionChanged {
		return nil
	}
	p, err := kafkax.UnwrapPayload[events.CollectionChangedPayload](env.Payload)
	if err != nil || p.Collection == "" {
		return nil
	}
	h.Notify(p.Collection)
	return nil
}

// CollectionChanged lets the hub act as a catalog.ChangeNotifier directly
// when no broker sits in between.
func (h *Hub) CollectionChanged(_ context.Context, collection string, _ ...string) {
	h.Notify(collection)
}

// OrderPlaced refreshes the orders and products subscribers.
func (h *Hub) OrderPlaced(_ context.Context, _ orders.Order, _ []orders.StockChange) {
	h.Notify(catalog.CollectionOrders)
	h.Notify(catalog.CollectionProducts)
}
