// Package memdb is an in-process document store with the same contract as the
// hosted realtime database: keyed collections, atomic multi-path commits and
// change subscriptions. It backs STORE_DRIVER=memory and the service tests.
package memdb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

// ChangeFunc receives the collection name and the ids touched by a write.
type ChangeFunc func(collection string, ids []string)

var (
	_ orders.Store  = (*DB)(nil)
	_ orders.Ledger = (*DB)(nil)
	_ catalog.Store = (*DB)(nil)
)

type DB struct {
	mu         sync.RWMutex
	products   map[string]catalog.Product
	customers  map[string]catalog.Customer
	categories map[string]catalog.Category
	orders     map[string]orders.Order

	subMu   sync.Mutex
	subs    map[string]map[int]ChangeFunc
	nextSub int
}

func New() *DB {
	return &DB{
		products:   map[string]catalog.Product{},
		customers:  map[string]catalog.Customer{},
		categories: map[string]catalog.Category{},
		orders:     map[string]orders.Order{},
		subs:       map[string]map[int]ChangeFunc{},
	}
}

// Subscribe registers fn for writes to collection. Callbacks run synchronously
// after the write is visible and outside the store lock.
func (db *DB) Subscribe(collection string, fn ChangeFunc) (unsubscribe func()) {
	db.subMu.Lock()
	defer db.subMu.Unlock()
	id := db.nextSub
	db.nextSub++
	if db.subs[collection] == nil {
		db.subs[collection] = map[int]ChangeFunc{}
	}
	db.subs[collection][id] = fn
	return func() {
		db.subMu.Lock()
		defer db.subMu.Unlock()
		delete(db.subs[collection], id)
	}
}

func (db *DB) notify(collection string, ids ...string) {
	db.subMu.Lock()
	fns := make([]ChangeFunc, 0, len(db.subs[collection]))
	for _, fn := range db.subs[collection] {
		fns = append(fns, fn)
	}
	db.subMu.Unlock()
	for _, fn := range fns {
		fn(collection, ids)
	}
}

// ---- orders.Store / orders.Ledger ----

func (db *DB) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	p, ok := db.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %s: %w", id, catalog.ErrNotFound)
	}
	return p, nil
}

// Commit checks every stock change before applying any of them.
func (db *DB) Commit(_ context.Context, b orders.Batch) error {
	db.mu.Lock()
	for _, c := range b.Stock {
		if c.Quantity <= 0 {
			db.mu.Unlock()
			return fmt.Errorf("product %s: %w", c.ProductID, orders.ErrInvalidQuantity)
		}
		p, ok := db.products[c.ProductID]
		if !ok || p.Stock < c.Quantity {
			db.mu.Unlock()
			return c.ConflictError()
		}
	}
	if _, dup := db.orders[b.Order.ID]; dup {
		db.mu.Unlock()
		return fmt.Errorf("order %s already exists", b.Order.ID)
	}

	ids := make([]string, 0, len(b.Stock))
	for _, c := range b.Stock {
		p := db.products[c.ProductID]
		p.Stock -= c.Quantity
		db.products[c.ProductID] = p
		ids = append(ids, c.ProductID)
	}
	db.orders[b.Order.ID] = copyOrder(b.Order)
	db.mu.Unlock()

	db.notify(catalog.CollectionProducts, ids...)
	db.notify(catalog.CollectionOrders, b.Order.ID)
	return nil
}

func (db *DB) ListOrders(_ context.Context, f orders.ListFilter) ([]orders.Order, error) {
	db.mu.RLock()
	out := make([]orders.Order, 0, len(db.orders))
	for _, o := range db.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, copyOrder(o))
	}
	db.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (db *DB) GetOrder(_ context.Context, id string) (orders.Order, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	o, ok := db.orders[id]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrOrderNotFound, id)
	}
	return copyOrder(o), nil
}

func copyOrder(o orders.Order) orders.Order {
	items := make([]orders.Item, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// ---- catalog.Store ----

func (db *DB) SaveProduct(_ context.Context, p catalog.Product) error {
	db.mu.Lock()
	db.products[p.ID] = p
	db.mu.Unlock()
	db.notify(catalog.CollectionProducts, p.ID)
	return nil
}

func (db *DB) ListProducts(_ context.Context) ([]catalog.Product, error) {
	db.mu.RLock()
	out := make([]catalog.Product, 0, len(db.products))
	for _, p := range db.products {
		out = append(out, p)
	}
	db.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (db *DB) DeleteProduct(_ context.Context, id string) error {
	db.mu.Lock()
	_, ok := db.products[id]
	delete(db.products, id)
	db.mu.Unlock()
	if !ok {
		return fmt.Errorf("product %s: %w", id, catalog.ErrNotFound)
	}
	db.notify(catalog.CollectionProducts, id)
	return nil
}

func (db *DB) SaveCustomer(_ context.Context, c catalog.Customer) error {
	db.mu.Lock()
	db.customers[c.ID] = c
	db.mu.Unlock()
	db.notify(catalog.CollectionCustomers, c.ID)
	return nil
}

func (db *DB) GetCustomer(_ context.Context, id string) (catalog.Customer, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.customers[id]
	if !ok {
		return catalog.Customer{}, fmt.Errorf("customer %s: %w", id, catalog.ErrNotFound)
	}
	return c, nil
}

func (db *DB) ListCustomers(_ context.Context) ([]catalog.Customer, error) {
	db.mu.RLock()
	out := make([]catalog.Customer, 0, len(db.customers))
	for _, c := range db.customers {
		out = append(out, c)
	}
	db.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (db *DB) DeleteCustomer(_ context.Context, id string) error {
	db.mu.Lock()
	_, ok := db.customers[id]
	delete(db.customers, id)
	db.mu.Unlock()
	if !ok {
		return fmt.Errorf("customer %s: %w", id, catalog.ErrNotFound)
	}
	db.notify(catalog.CollectionCustomers, id)
	return nil
}

func (db *DB) SaveCategory(_ context.Context, c catalog.Category) error {
	db.mu.Lock()
	db.categories[c.ID] = c
	db.mu.Unlock()
	db.notify(catalog.CollectionCategories, c.ID)
	return nil
}

func (db *DB) ListCategories(_ context.Context) ([]catalog.Category, error) {
	db.mu.RLock()
	out := make([]catalog.Category, 0, len(db.categories))
	for _, c := range db.categories {
		out = append(out, c)
	}
	db.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (db *DB) DeleteCategory(_ context.Context, id string) error {
	db.mu.Lock()
	_, ok := db.categories[id]
	delete(db.categories, id)
	db.mu.Unlock()
	if !ok {
		return fmt.Errorf("category %s: %w", id, catalog.ErrNotFound)
	}
	db.notify(catalog.CollectionCategories, id)
	return nil
}

func (db *DB) Counts(_ context.Context) (catalog.Counts, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return catalog.Counts{
		Products:   len(db.products),
		Customers:  len(db.customers),
		Categories: len(db.categories),
		Orders:     len(db.orders),
	}, nil
}

func less(nameA, idA, nameB, idB string) bool {
	if nameA != nameB {
		return nameA < nameB
	}
	return idA < idB
}
