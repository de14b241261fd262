package orders

import "time"

// LineInput is one requested product+quantity pair, as submitted by the caller.
type LineInput struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// Item is an order line with the product name and price captured at placement time.
type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
}

func (it Item) Subtotal() int64 { return it.Price * int64(it.Qty) }

type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Items      []Item    `json:"items"`
	Total      int64     `json:"total"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Receipt struct {
	OrderID      string        `json:"orderId"`
	CustomerID   string        `json:"customerId"`
	CustomerName string        `json:"customerName"`
	CreatedAt    time.Time     `json:"createdAt"`
	Lines        []ReceiptLine `json:"lines"`
	Total        int64         `json:"total"`
}

type ReceiptLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
	Subtotal  int64  `json:"subtotal"`
}
