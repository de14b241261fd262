package orders_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/ariefcatur/go-inventory-orders/internal/memdb"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var fixedNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(catalog.Product), args.Error(1)
}

func (m *mockStore) Commit(ctx context.Context, b orders.Batch) error {
	return m.Called(ctx, b).Error(0)
}

// racingStore lets another buyer take stock between validation and commit.
type racingStore struct {
	*memdb.DB
	steal func()
}

func (r *racingStore) Commit(ctx context.Context, b orders.Batch) error {
	r.steal()
	return r.DB.Commit(ctx, b)
}

type recordingNotifier struct {
	orders  []orders.Order
	changes [][]orders.StockChange
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o orders.Order, changes []orders.StockChange) {
	n.orders = append(n.orders, o)
	n.changes = append(n.changes, changes)
}

type PlaceOrderSuite struct {
	suite.Suite
	ctx      context.Context
	db       *memdb.DB
	notifier *recordingNotifier
	svc      *orders.Service
	ids      int
}

func TestPlaceOrderSuite(t *testing.T) {
	suite.Run(t, new(PlaceOrderSuite))
}

func (s *PlaceOrderSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = memdb.New()
	s.notifier = &recordingNotifier{}
	s.ids = 0
	s.svc = &orders.Service{
		Store:     s.db,
		Ledger:    s.db,
		Customers: s.db,
		Notifier:  s.notifier,
		Metrics:   metrics.NewOrders(prometheus.NewRegistry()),
		NewID: func() string {
			s.ids++
			return []string{"", "order-1", "order-2", "order-3"}[s.ids]
		},
		Now: func() time.Time { return fixedNow },
	}
}

func (s *PlaceOrderSuite) product(id string, price int64, stock int) {
	s.Require().NoError(s.db.SaveProduct(s.ctx, catalog.Product{ID: id, Name: "Product " + id, Category: "General", Price: price, Stock: stock}))
}

func (s *PlaceOrderSuite) stock(id string) int {
	p, err := s.db.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	return p.Stock
}

func (s *PlaceOrderSuite) orderCount() int {
	list, err := s.db.ListOrders(s.ctx, orders.ListFilter{})
	s.Require().NoError(err)
	return len(list)
}

func (s *PlaceOrderSuite) TestWholeStockSells() {
	s.product("A", 100, 5)

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{{ProductID: "A", Qty: 5}})
	s.Require().NoError(err)

	s.Equal("order-1", o.ID)
	s.Equal(int64(500), o.Total)
	s.Equal(fixedNow, o.CreatedAt)
	s.Equal([]orders.Item{{ProductID: "A", Name: "Product A", Price: 100, Qty: 5}}, o.Items)
	s.Equal(0, s.stock("A"))
	s.Equal(1, s.orderCount())
}

func (s *PlaceOrderSuite) TestEveryLineDecrementsItsProduct() {
	s.product("A", 100, 10)
	s.product("B", 250, 4)
	s.product("C", 75, 1)

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{
		{ProductID: "A", Qty: 3},
		{ProductID: "B", Qty: 4},
		{ProductID: "C", Qty: 1},
	})
	s.Require().NoError(err)

	s.Equal(int64(3*100+4*250+1*75), o.Total)
	s.Equal(7, s.stock("A"))
	s.Equal(0, s.stock("B"))
	s.Equal(0, s.stock("C"))
	s.Equal(1, s.orderCount())

	stored, err := s.db.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(*o, stored)
}

func (s *PlaceOrderSuite) TestInsufficientStockRejectsWholeOrder() {
	s.product("A", 100, 5)
	s.product("B", 100, 0)

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{
		{ProductID: "A", Qty: 3},
		{ProductID: "B", Qty: 1},
	})
	s.Nil(o)

	var report *orders.DefectReport
	s.Require().ErrorAs(err, &report)
	s.Equal([]orders.Defect{
		{Kind: orders.DefectInsufficientStock, ProductID: "B", Available: 0, Requested: 1},
	}, report.Defects)
	s.Equal(5, s.stock("A"))
	s.Equal(0, s.orderCount())
	s.Empty(s.notifier.orders)
}

func (s *PlaceOrderSuite) TestReportListsEveryFailingLine() {
	s.product("A", 100, 1)
	s.product("B", 100, 2)
	s.product("C", 100, 9)

	_, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{
		{ProductID: "A", Qty: 2},
		{ProductID: "ghost", Qty: 1},
		{ProductID: "C", Qty: 1},
		{ProductID: "B", Qty: 3},
	})

	var report *orders.DefectReport
	s.Require().ErrorAs(err, &report)
	s.Equal([]orders.Defect{
		{Kind: orders.DefectInsufficientStock, ProductID: "A", Available: 1, Requested: 2},
		{Kind: orders.DefectProductNotFound, ProductID: "ghost"},
		{Kind: orders.DefectInsufficientStock, ProductID: "B", Available: 2, Requested: 3},
	}, report.Defects)
	s.Equal(9, s.stock("C"))
	s.Equal(0, s.orderCount())
}

func (s *PlaceOrderSuite) TestUnknownProduct() {
	_, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{{ProductID: "nope", Qty: 1}})

	var report *orders.DefectReport
	s.Require().ErrorAs(err, &report)
	s.Equal([]orders.Defect{{Kind: orders.DefectProductNotFound, ProductID: "nope"}}, report.Defects)
	s.Equal(0, s.orderCount())
}

func (s *PlaceOrderSuite) TestFailedAttemptsRepeatIdentically() {
	s.product("A", 100, 2)
	lines := []orders.LineInput{{ProductID: "A", Qty: 3}, {ProductID: "missing", Qty: 1}}

	_, first := s.svc.PlaceOrder(s.ctx, "cust-1", lines)
	_, second := s.svc.PlaceOrder(s.ctx, "cust-1", lines)

	var r1, r2 *orders.DefectReport
	s.Require().ErrorAs(first, &r1)
	s.Require().ErrorAs(second, &r2)
	s.Equal(r1.Defects, r2.Defects)
	s.Equal(2, s.stock("A"))
}

func (s *PlaceOrderSuite) TestMissingCustomer() {
	s.product("A", 100, 5)

	_, err := s.svc.PlaceOrder(s.ctx, "   ", []orders.LineInput{{ProductID: "A", Qty: 1}})
	s.ErrorIs(err, orders.ErrMissingCustomer)
	s.Equal(5, s.stock("A"))
}

func (s *PlaceOrderSuite) TestRepeatedProductLinesAreMerged() {
	s.product("A", 100, 5)

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{
		{ProductID: "A", Qty: 2},
		{ProductID: " A ", Qty: 3},
	})
	s.Require().NoError(err)
	s.Len(o.Items, 1)
	s.Equal(5, o.Items[0].Qty)
	s.Equal(0, s.stock("A"))

	s.product("B", 100, 5)
	_, err = s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{
		{ProductID: "B", Qty: 3},
		{ProductID: "B", Qty: 3},
	})
	var report *orders.DefectReport
	s.Require().ErrorAs(err, &report)
	s.Equal(6, report.Defects[0].Requested)
}

func (s *PlaceOrderSuite) TestMergedQuantityOverflowIsInsufficientStock() {
	s.product("A", 100, 5)

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{
		{ProductID: "A", Qty: math.MaxInt},
		{ProductID: "A", Qty: math.MaxInt},
	})
	s.Nil(o)

	var report *orders.DefectReport
	s.Require().ErrorAs(err, &report)
	s.Equal([]orders.Defect{
		{Kind: orders.DefectInsufficientStock, ProductID: "A", Available: 5, Requested: math.MaxInt},
	}, report.Defects)
	s.Equal(5, s.stock("A"))
	s.Equal(0, s.orderCount())
	s.Empty(s.notifier.orders)
}

func (s *PlaceOrderSuite) TestListOrdersByCustomer() {
	s.product("A", 100, 10)
	s.Require().NoError(s.db.SaveCustomer(s.ctx, catalog.Customer{ID: "cust-1", Name: "Ada"}))

	first, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{{ProductID: "A", Qty: 1}})
	s.Require().NoError(err)
	_, err = s.svc.PlaceOrder(s.ctx, "cust-2", []orders.LineInput{{ProductID: "A", Qty: 1}})
	s.Require().NoError(err)

	list, err := s.svc.ListOrders(s.ctx, orders.ListFilter{CustomerID: " cust-1 "})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(first.ID, list[0].ID)

	all, err := s.svc.ListOrders(s.ctx, orders.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PlaceOrderSuite) TestNotifierSeesCommittedOrder() {
	s.product("A", 100, 5)

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{{ProductID: "A", Qty: 2}})
	s.Require().NoError(err)

	s.Require().Len(s.notifier.orders, 1)
	s.Equal(o.ID, s.notifier.orders[0].ID)
	s.Equal([]orders.StockChange{{ProductID: "A", Expected: 5, Quantity: 2, New: 3}}, s.notifier.changes[0])
}

func (s *PlaceOrderSuite) TestLostRaceFailsCommit() {
	s.product("A", 100, 5)
	s.svc.Store = &racingStore{DB: s.db, steal: func() {
		s.Require().NoError(s.db.SaveProduct(s.ctx, catalog.Product{ID: "A", Name: "Product A", Price: 100, Stock: 1}))
	}}

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{{ProductID: "A", Qty: 4}})
	s.Nil(o)

	var commitErr *orders.CommitError
	s.Require().ErrorAs(err, &commitErr)
	s.ErrorIs(err, orders.ErrStockConflict)
	s.Equal(1, s.stock("A"))
	s.Equal(0, s.orderCount())
	s.Empty(s.notifier.orders)
}

func (s *PlaceOrderSuite) TestReceipt() {
	s.product("A", 100, 5)
	s.product("B", 40, 5)
	s.Require().NoError(s.db.SaveCustomer(s.ctx, catalog.Customer{ID: "cust-1", Name: "Ada Obi"}))

	o, err := s.svc.PlaceOrder(s.ctx, "cust-1", []orders.LineInput{{ProductID: "A", Qty: 2}, {ProductID: "B", Qty: 3}})
	s.Require().NoError(err)

	r, err := s.svc.Receipt(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal("Ada Obi", r.CustomerName)
	s.Equal(int64(320), r.Total)
	s.Equal([]orders.ReceiptLine{
		{ProductID: "A", Name: "Product A", Qty: 2, Price: 100, Subtotal: 200},
		{ProductID: "B", Name: "Product B", Qty: 3, Price: 40, Subtotal: 120},
	}, r.Lines)

	s.Require().NoError(s.db.DeleteCustomer(s.ctx, "cust-1"))
	r, err = s.svc.Receipt(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal("Unknown", r.CustomerName)

	_, err = s.svc.Receipt(s.ctx, "does-not-exist")
	s.ErrorIs(err, orders.ErrOrderNotFound)
}

func TestEmptyOrderNeverTouchesStore(t *testing.T) {
	store := new(mockStore)
	svc := &orders.Service{Store: store}

	_, err := svc.PlaceOrder(context.Background(), "cust-1", []orders.LineInput{
		{ProductID: "", Qty: 2},
		{ProductID: "A", Qty: 0},
		{ProductID: "B", Qty: -4},
	})
	assert.ErrorIs(t, err, orders.ErrEmptyOrder)

	_, err = svc.PlaceOrder(context.Background(), "cust-1", nil)
	assert.ErrorIs(t, err, orders.ErrEmptyOrder)

	store.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestCommitFailureIsReported(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	notifier := &recordingNotifier{}
	svc := &orders.Service{Store: store, Notifier: notifier, NewID: func() string { return "order-x" }}
	cause := errors.New("connection reset by peer")

	store.On("GetProduct", mock.Anything, "A").Return(catalog.Product{ID: "A", Name: "A", Price: 10, Stock: 3}, nil)
	store.On("Commit", mock.Anything, mock.MatchedBy(func(b orders.Batch) bool {
		return b.Order.ID == "order-x" && b.Order.Total == 20 && len(b.Stock) == 1 && b.Stock[0].New == 1
	})).Return(cause)

	o, err := svc.PlaceOrder(ctx, "cust-1", []orders.LineInput{{ProductID: "A", Qty: 2}})
	assert.Nil(t, o)

	var commitErr *orders.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, notifier.orders)
	store.AssertExpectations(t)
}

func TestProductReadFailureIsNotADefect(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	svc := &orders.Service{Store: store}
	cause := errors.New("timeout")

	store.On("GetProduct", mock.Anything, "A").Return(catalog.Product{}, cause)

	_, err := svc.PlaceOrder(ctx, "cust-1", []orders.LineInput{{ProductID: "A", Qty: 1}})
	assert.ErrorIs(t, err, cause)

	var report *orders.DefectReport
	assert.False(t, errors.As(err, &report))
	store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestDefectReportMessage(t *testing.T) {
	r := &orders.DefectReport{Defects: []orders.Defect{
		{Kind: orders.DefectInsufficientStock, ProductID: "B", Available: 0, Requested: 1},
		{Kind: orders.DefectProductNotFound, ProductID: "Z"},
	}}
	assert.Equal(t, "order rejected: insufficient stock for B: available 0, requested 1; product Z not found", r.Error())
}

type invalidatorFunc func(ctx context.Context, ids ...string) error

func (f invalidatorFunc) InvalidateProducts(ctx context.Context, ids ...string) error {
	return f(ctx, ids...)
}

func TestInvalidateOnPlace(t *testing.T) {
	var evicted []string
	var reported error
	n := orders.InvalidateOnPlace(invalidatorFunc(func(_ context.Context, ids ...string) error {
		evicted = append(evicted, ids...)
		return errors.New("redis down")
	}), func(err error) { reported = err })

	orders.Notifiers{n}.OrderPlaced(context.Background(), orders.Order{ID: "o1"}, []orders.StockChange{
		{ProductID: "A"}, {ProductID: "B"},
	})

	assert.Equal(t, []string{"A", "B"}, evicted)
	assert.EqualError(t, reported, "redis down")
}
