package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	clientBuffer    = 16
	notifyBuffer    = 256
	snapshotTimeout = 5 * time.Second
)

// SnapshotFunc returns the current content of a collection.
type SnapshotFunc func(ctx context.Context, collection string) (any, error)

// Message is what subscribers receive: the whole collection after a change.
type Message struct {
	Collection string `json:"collection"`
	Data       any    `json:"data"`
}

// Client is one subscriber of one collection.
type Client struct {
	collection string
	send       chan []byte
	mu         sync.Mutex
	closed     bool
}

func (c *Client) Collection() string { return c.collection }

// Send is closed when the hub drops the client or stops.
func (c *Client) Send() <-chan []byte { return c.send }

func (c *Client) offer(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub pushes collection snapshots to websocket subscribers.
// Notify never blocks: a full queue or a full client buffer drops the update.
type Hub struct {
	snapshot SnapshotFunc
	log      *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	changes  chan string
	done     chan struct{}
	stopOnce sync.Once
}

func NewHub(snapshot SnapshotFunc, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		snapshot: snapshot,
		log:      log,
		clients:  make(map[*Client]struct{}),
		changes:  make(chan string, notifyBuffer),
		done:     make(chan struct{}),
	}
}

// Run fans change notifications out until ctx is cancelled or Stop is called.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case collection := <-h.changes:
			h.broadcast(ctx, collection)
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Notify schedules a snapshot push for collection.
func (h *Hub) Notify(collection string) {
	select {
	case h.changes <- collection:
	default:
		h.log.Warn("change notification dropped", zap.String("collection", collection))
	}
}

// Register subscribes a client and queues the current snapshot for it.
func (h *Hub) Register(ctx context.Context, collection string) *Client {
	c := &Client{collection: collection, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if b, err := h.render(ctx, collection); err == nil {
		c.offer(b)
	}
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ctx context.Context, collection string) {
	h.mu.RLock()
	var targets []*Client
	for c := range h.clients {
		if c.collection == collection {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := h.render(ctx, collection)
	if err != nil {
		return
	}
	for _, c := range targets {
		if !c.offer(b) {
			h.log.Debug("slow subscriber, update dropped", zap.String("collection", collection))
		}
	}
}

func (h *Hub) render(ctx context.Context, collection string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	data, err := h.snapshot(ctx, collection)
	if err != nil {
		h.log.Error("snapshot failed", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	b, err := json.Marshal(Message{Collection: collection, Data: data})
	if err != nil {
		h.log.Error("encode snapshot", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	return b, nil
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]struct{})
}
