package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Collection names, shared by the realtime layer and change events.
const (
	CollectionProducts   = "products"
	CollectionCustomers  = "customers"
	CollectionCategories = "categories"
	CollectionOrders     = "orders"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid record")
)

// Product price is kept in minor currency units.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Counts struct {
	Products   int `json:"products"`
	Customers  int `json:"customers"`
	Categories int `json:"categories"`
	Orders     int `json:"orders"`
}

func (p *Product) normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
}

func (p Product) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: product name is required", ErrInvalid)
	case p.Category == "":
		return fmt.Errorf("%w: product category is required", ErrInvalid)
	case p.Price < 0:
		return fmt.Errorf("%w: product price must not be negative", ErrInvalid)
	case p.Stock < 0:
		return fmt.Errorf("%w: product stock must not be negative", ErrInvalid)
	}
	return nil
}

func (c *Customer) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
}

func (c Customer) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalid)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalid)
	}
	return nil
}
