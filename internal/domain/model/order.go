package model

import "time"

// OrderStatus describes the payment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order describes one checkout attempt with its snapshotted line items.
// Total is stored in minor currency units and never recomputed from the
// catalog after creation.
type Order struct {
	ID            string
	BuyerEmail    string
	Status        OrderStatus
	Total         int64
	PreferenceRef string
	PaymentRef    string
	CreatedAt     time.Time
	Items         []LineItem
}

// LineItem is an immutable snapshot of a catalog item at purchase time.
type LineItem struct {
	ID            int64
	OrderID       string
	CatalogItemID int64
	Title         string
	UnitPrice     int64
}

// SumPrices returns the integer sum of line item unit prices.
func SumPrices(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPrice
	}
	return total
}
