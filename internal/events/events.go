package events

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

const (
	EventOrderPlaced       = "OrderPlaced"
	EventCollectionChanged = "CollectionChanged"
)

const (
	TopicOrderPlaced      = "order.placed"
	TopicInventoryChanged = "inventory.changed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	Order orders.Order         `json:"order"`
	Stock []orders.StockChange `json:"stock"`
}

type CollectionChangedPayload struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids,omitempty"`
}

// PartitionKey keeps all events of one order (or one collection) in order.
func PartitionKey(id string) []byte { return []byte(id) }
