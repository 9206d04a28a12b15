// Package cart holds the per-customer working set of items to be checked
// out. A cart is created lazily on first add and physically removed when an
// order is placed from it; its lifecycle is independent from the order's.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a customer has no cart.
var ErrNotFound = errors.New("cart not found")

// Item is one product entry in a cart. Price is the catalog price at the
// time the item was added; the order engine re-reads the catalog at
// checkout, so a stale cart price never leaks into an order.
type Item struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Cart is a customer's mutable working set.
type Cart struct {
	CustomerID string
	Items      []Item
	Total      decimal.Decimal
	UpdatedAt  time.Time
}

// Recalculate recomputes Total as the sum of price * quantity over all
// items. Called after every mutation.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	c.Total = total
}

// Repository defines persistence operations for carts.
type Repository interface {
	// Get returns the customer's cart, or ErrNotFound when none exists.
	Get(ctx context.Context, customerID string) (*Cart, error)
	// Save upserts the cart.
	Save(ctx context.Context, c *Cart) error
	// Clear removes the customer's cart entirely. Clearing an absent cart
	// is a no-op.
	Clear(ctx context.Context, customerID string) error
}
