package stockwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/events"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-redis/redismock/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func orderPlaced(t *testing.T, eventID string, stock ...orders.StockChange) kafkago.Message {
	t.Helper()
	env := events.Envelope{
		EventID:      eventID,
		EventType:    events.EventOrderPlaced,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Payload:      kafkax.MustMarshal(events.OrderPlacedPayload{Order: orders.Order{ID: "o1"}, Stock: stock}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestCheckThreshold(t *testing.T) {
	s := &Service{Threshold: 5}
	alerts := s.Check(events.OrderPlacedPayload{
		Order: orders.Order{ID: "o1"},
		Stock: []orders.StockChange{
			{ProductID: "A", New: 0},
			{ProductID: "B", New: 5},
			{ProductID: "C", New: 6},
		},
	})
	require.Len(t, alerts, 2)
	assert.Equal(t, Alert{OrderID: "o1", ProductID: "A", Stock: 0, Threshold: 5}, alerts[0])
	assert.Equal(t, "B", alerts[1].ProductID)
}

func TestHandleOrderPlacedDedups(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	var got []Alert
	s := &Service{Threshold: 2, Redis: rdb, Log: zap.NewNop(), ServiceName: "stockwatch",
		OnAlert: func(a Alert) { got = append(got, a) }}

	msg := orderPlaced(t, "ev-1", orders.StockChange{ProductID: "A", New: 1})
	mock.ExpectSetNX("dedup:stockwatch:ev-1", "1", 48*time.Hour).SetVal(true)
	mock.ExpectSetNX("dedup:stockwatch:ev-1", "1", 48*time.Hour).SetVal(false)

	require.NoError(t, s.HandleOrderPlaced(context.Background(), msg))
	require.NoError(t, s.HandleOrderPlaced(context.Background(), msg))

	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleOrderPlacedClaimErrorIsRetried(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := &Service{Threshold: 2, Redis: rdb, Log: zap.NewNop(), ServiceName: "stockwatch"}
	mock.ExpectSetNX("dedup:stockwatch:ev-2", "1", 48*time.Hour).SetErr(errors.New("redis down"))

	err := s.HandleOrderPlaced(context.Background(), orderPlaced(t, "ev-2"))
	assert.ErrorContains(t, err, "redis down")
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	called := false
	s := &Service{Threshold: 100, Log: zap.NewNop(), OnAlert: func(Alert) { called = true }}

	env := events.Envelope{EventID: "x", EventType: events.EventCollectionChanged}
	require.NoError(t, s.HandleOrderPlaced(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)}))
	require.NoError(t, s.HandleOrderPlaced(context.Background(), kafkago.Message{Value: []byte("not json")}))
	assert.False(t, called)
}
