package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps products, orders and order_items in Postgres.
// A Batch is one transaction.
type PostgresStore struct{ DB postgres.DB }

func (r *PostgresStore) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	var p catalog.Product
	err := r.DB.QueryRow(ctx, `SELECT id, name, category, price, stock FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, fmt.Errorf("product %s: %w", id, catalog.ErrNotFound)
	}
	return p, err
}

// Commit decrements stock only while it still covers the quantity, then inserts
// the order and its items. Any shortfall rolls the whole transaction back.
func (r *PostgresStore) Commit(ctx context.Context, b Batch) error {
	for _, c := range b.Stock {
		if c.Quantity <= 0 {
			return fmt.Errorf("product %s: %w", c.ProductID, ErrInvalidQuantity)
		}
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range b.Stock {
		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`, c.ProductID, c.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock %s: %w", c.ProductID, err)
		}
		if ct.RowsAffected() != 1 {
			return c.ConflictError()
		}
	}

	o := b.Order
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, total, created_at)
		VALUES ($1, $2, $3, $4)`, o.ID, o.CustomerID, o.Total, o.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, price, qty)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, it.ProductID, it.Name, it.Price, it.Qty); err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}

// ListOrders returns the newest orders first.
func (r *PostgresStore) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if f.CustomerID != "" {
		rows, err = r.DB.Query(ctx, `
			SELECT id, customer_id, total, created_at FROM orders
			WHERE customer_id = $1
			ORDER BY created_at DESC, id LIMIT $2`, f.CustomerID, f.Limit)
	} else {
		rows, err = r.DB.Query(ctx, `
			SELECT id, customer_id, total, created_at FROM orders
			ORDER BY created_at DESC, id LIMIT $1`, f.Limit)
	}
	if err != nil {
		return nil, err
	}
	out := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Total, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		o.Items = []Item{}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	byID := make(map[string]int, len(out))
	for i, o := range out {
		ids[i] = o.ID
		byID[o.ID] = i
	}
	items, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, name, price, qty FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer items.Close()
	for items.Next() {
		var orderID string
		var it Item
		if err := items.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Qty); err != nil {
			return nil, err
		}
		if i, ok := byID[orderID]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	return out, items.Err()
}

func (r *PostgresStore) GetOrder(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `SELECT id, customer_id, total, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CustomerID, &o.Total, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, price, qty FROM order_items
		WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()

	o.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Qty); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}
