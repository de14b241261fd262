package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
)

// Repo is the Postgres-backed catalog Store.
type Repo struct{ DB postgres.DB }

func (r *Repo) SaveProduct(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products (id, name, category, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category,
			price = EXCLUDED.price, stock = EXCLUDED.stock, updated_at = now()`,
		p.ID, p.Name, p.Category, p.Price, p.Stock)
	return err
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT id, name, category, price, stock FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, category, price, stock FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	return r.delete(ctx, `DELETE FROM products WHERE id = $1`, "product", id)
}

func (r *Repo) SaveCustomer(ctx context.Context, c Customer) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO customers (id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email,
			phone = EXCLUDED.phone, address = EXCLUDED.address, updated_at = now()`,
		c.ID, c.Name, c.Email, c.Phone, c.Address)
	return err
}

func (r *Repo) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var c Customer
	err := r.DB.QueryRow(ctx, `SELECT id, name, email, phone, address FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return c, err
}

func (r *Repo) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, email, phone, address FROM customers ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Customer{}
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteCustomer(ctx context.Context, id string) error {
	return r.delete(ctx, `DELETE FROM customers WHERE id = $1`, "customer", id)
}

func (r *Repo) SaveCategory(ctx context.Context, c Category) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO categories (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`,
		c.ID, c.Name)
	return err
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	return r.delete(ctx, `DELETE FROM categories WHERE id = $1`, "category", id)
}

func (r *Repo) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.DB.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM products),
		       (SELECT count(*) FROM customers),
		       (SELECT count(*) FROM categories),
		       (SELECT count(*) FROM orders)`).
		Scan(&c.Products, &c.Customers, &c.Categories, &c.Orders)
	return c, err
}

func (r *Repo) delete(ctx context.Context, sql, kind, id string) error {
	ct, err := r.DB.Exec(ctx, sql, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
