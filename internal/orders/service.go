package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-inventory-orders/internal/orders")

const defaultListLimit = 100

type Service struct {
	Store     Store
	Ledger    Ledger
	Customers CustomerFinder
	Notifier  Notifier
	Metrics   *metrics.Orders
	Log       *zap.Logger

	// NewID and Now are overridable in tests.
	NewID func() string
	Now   func() time.Time
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// PlaceOrder validates every line against the stock currently in the store and,
// when all of them can be served, decrements stock and records the order in one
// atomic write. Line defects come back together as a *DefectReport; a refused
// write comes back as a *CommitError. Nothing is retried.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, lines []LineInput) (*Order, error) {
	ctx, span := tracer.Start(ctx, "orders.PlaceOrder")
	defer span.End()
	started := time.Now()

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		s.Metrics.Rejected("missing_customer")
		return nil, ErrMissingCustomer
	}
	lines = normalizeLines(lines)
	if len(lines) == 0 {
		s.Metrics.Rejected("empty_order")
		return nil, ErrEmptyOrder
	}
	span.SetAttributes(
		attribute.String("order.customer_id", customerID),
		attribute.Int("order.lines", len(lines)),
	)

	var defects []Defect
	items := make([]Item, 0, len(lines))
	changes := make([]StockChange, 0, len(lines))
	for _, ln := range lines {
		// always the store, never a cached copy
		p, err := s.Store.GetProduct(ctx, ln.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			defects = append(defects, Defect{Kind: DefectProductNotFound, ProductID: ln.ProductID})
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "product read failed")
			return nil, fmt.Errorf("read product %s: %w", ln.ProductID, err)
		}
		if ln.Qty > p.Stock {
			defects = append(defects, Defect{
				Kind:      DefectInsufficientStock,
				ProductID: ln.ProductID,
				Available: p.Stock,
				Requested: ln.Qty,
			})
			continue
		}
		items = append(items, Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Qty: ln.Qty})
		changes = append(changes, StockChange{
			ProductID: p.ID,
			Expected:  p.Stock,
			Quantity:  ln.Qty,
			New:       p.Stock - ln.Qty,
		})
	}

	if len(defects) > 0 {
		for _, d := range defects {
			s.Metrics.Rejected(strings.ToLower(string(d.Kind)))
		}
		span.SetAttributes(attribute.Int("order.defects", len(defects)))
		span.SetStatus(codes.Error, "order rejected")
		s.log().Info("order rejected",
			zap.String("customer_id", customerID),
			zap.Int("defects", len(defects)))
		return nil, &DefectReport{Defects: defects}
	}

	order := Order{
		ID:         s.newID(),
		CustomerID: customerID,
		Items:      items,
		CreatedAt:  s.now(),
	}
	for _, it := range items {
		order.Total += it.Subtotal()
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int64("order.total", order.Total))

	if err := s.Store.Commit(ctx, Batch{Stock: changes, Order: order}); err != nil {
		s.Metrics.CommitFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		s.log().Error("order commit failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, &CommitError{Err: err}
	}

	s.Metrics.Placed(time.Since(started))
	span.SetStatus(codes.Ok, "order placed")
	s.log().Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", customerID),
		zap.Int("items", len(order.Items)),
		zap.Int64("total", order.Total))

	if s.Notifier != nil {
		s.Notifier.OrderPlaced(ctx, order, changes)
	}
	return &order, nil
}

// normalizeLines drops lines without a product or with a non-positive quantity
// and merges repeated products, keeping the first position. A merged quantity
// saturates at math.MaxInt.
func normalizeLines(lines []LineInput) []LineInput {
	out := make([]LineInput, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, ln := range lines {
		id := strings.TrimSpace(ln.ProductID)
		if id == "" || ln.Qty <= 0 {
			continue
		}
		if i, ok := pos[id]; ok {
			if ln.Qty > math.MaxInt-out[i].Qty {
				out[i].Qty = math.MaxInt
			} else {
				out[i].Qty += ln.Qty
			}
			continue
		}
		pos[id] = len(out)
		out = append(out, LineInput{ProductID: id, Qty: ln.Qty})
	}
	return out
}

// ListOrders returns the newest orders first, optionally for one customer only.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	f.CustomerID = strings.TrimSpace(f.CustomerID)
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	return s.Ledger.ListOrders(ctx, f)
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.Ledger.GetOrder(ctx, strings.TrimSpace(id))
}

// Receipt renders an order with its customer name and per-line subtotals.
// Customers deleted since the order was placed show as "Unknown".
func (s *Service) Receipt(ctx context.Context, id string) (Receipt, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return Receipt{}, err
	}

	name := "Unknown"
	if s.Customers != nil {
		c, err := s.Customers.GetCustomer(ctx, o.CustomerID)
		switch {
		case err == nil:
			name = c.Name
		case errors.Is(err, catalog.ErrNotFound):
			s.log().Warn("receipt customer missing", zap.String("order_id", o.ID), zap.String("customer_id", o.CustomerID))
		default:
			return Receipt{}, fmt.Errorf("receipt customer %s: %w", o.CustomerID, err)
		}
	}

	r := Receipt{
		OrderID:      o.ID,
		CustomerID:   o.CustomerID,
		CustomerName: name,
		CreatedAt:    o.CreatedAt,
		Lines:        make([]ReceiptLine, 0, len(o.Items)),
		Total:        o.Total,
	}
	for _, it := range o.Items {
		r.Lines = append(r.Lines, ReceiptLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			Price:     it.Price,
			Subtotal:  it.Subtotal(),
		})
	}
	return r, nil
}
