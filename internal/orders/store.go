package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
)

// StockChange is one stock write of a Batch. Expected is the stock read during
// validation; New is Expected-Quantity. Stores apply it only while the current
// stock still covers Quantity, and report Expected when it no longer does.
type StockChange struct {
	ProductID string `json:"productId"`
	Expected  int    `json:"expected"`
	Quantity  int    `json:"quantity"`
	New       int    `json:"new"`
}

// Batch is the atomic multi-path update for one placed order.
type Batch struct {
	Stock []StockChange
	Order Order
}

// Store is the inventory + ledger write side used by PlaceOrder.
type Store interface {
	// GetProduct returns an error matching catalog.ErrNotFound for unknown ids.
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	// Commit applies every change of b or none of them.
	Commit(ctx context.Context, b Batch) error
}

// ConflictError reports a stock change that no longer holds at commit time.
func (c StockChange) ConflictError() error {
	return fmt.Errorf("product %s (read %d, need %d): %w", c.ProductID, c.Expected, c.Quantity, ErrStockConflict)
}

// ListFilter narrows a ledger listing. An empty CustomerID lists every customer.
type ListFilter struct {
	CustomerID string
	Limit      int
}

// Ledger is the read side of the order ledger.
type Ledger interface {
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
}

type CustomerFinder interface {
	GetCustomer(ctx context.Context, id string) (catalog.Customer, error)
}

// Notifier hears about committed orders. It must not fail the placement.
type Notifier interface {
	OrderPlaced(ctx context.Context, o Order, changes []StockChange)
}

// Notifiers fans a placed order out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) OrderPlaced(ctx context.Context, o Order, changes []StockChange) {
	for _, n := range ns {
		n.OrderPlaced(ctx, o, changes)
	}
}

// ProductInvalidator drops cached product reads; catalog.Cache implements it.
type ProductInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...string) error
}

type cacheNotifier struct {
	cache ProductInvalidator
	onErr func(error)
}

// InvalidateOnPlace returns a Notifier evicting every product touched by an order.
func InvalidateOnPlace(cache ProductInvalidator, onErr func(error)) Notifier {
	return &cacheNotifier{cache: cache, onErr: onErr}
}

func (n *cacheNotifier) OrderPlaced(ctx context.Context, _ Order, changes []StockChange) {
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ProductID)
	}
	if err := n.cache.InvalidateProducts(ctx, ids...); err != nil && n.onErr != nil {
		n.onErr(err)
	}
}
