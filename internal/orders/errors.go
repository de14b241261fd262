package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCustomer = errors.New("missing customer")
	ErrEmptyOrder      = errors.New("order has no valid lines")
	ErrOrderNotFound   = errors.New("order not found")

	// ErrStockConflict is returned by a Store when a stock write no longer holds,
	// i.e. another order took the stock between the read and the commit.
	ErrStockConflict = errors.New("stock changed since it was read")

	// ErrInvalidQuantity is returned by a Store for a stock change that would not decrement.
	ErrInvalidQuantity = errors.New("stock change quantity must be positive")
)

type DefectKind string

const (
	DefectProductNotFound   DefectKind = "PRODUCT_NOT_FOUND"
	DefectInsufficientStock DefectKind = "INSUFFICIENT_STOCK"
)

// Defect describes why a single line cannot be fulfilled.
type Defect struct {
	Kind      DefectKind `json:"kind"`
	ProductID string     `json:"productId"`
	Available int        `json:"available"`
	Requested int        `json:"requested"`
}

func (d Defect) String() string {
	switch d.Kind {
	case DefectInsufficientStock:
		return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", d.ProductID, d.Available, d.Requested)
	default:
		return fmt.Sprintf("product %s not found", d.ProductID)
	}
}

// DefectReport rejects an order attempt; it lists every failing line, in line order.
type DefectReport struct {
	Defects []Defect
}

func (r *DefectReport) Error() string {
	parts := make([]string, 0, len(r.Defects))
	for _, d := range r.Defects {
		parts = append(parts, d.String())
	}
	return "order rejected: " + strings.Join(parts, "; ")
}

// CommitError means the store refused the atomic write. Nothing was applied.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "commit order: " + e.Err.Error() }

func (e *CommitError) Unwrap() error { return e.Err }
