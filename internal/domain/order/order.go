// Package order is the order engine: creation with catalog snapshotting,
// the fulfillment state machine, role-scoped visibility, soft delete with
// audit, and payment-webhook reconciliation.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a customer pays for an order.
type PaymentMethod string

const (
	PaymentMobileMoney    PaymentMethod = "mobile_money"
	PaymentCard           PaymentMethod = "card"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMobileMoney, PaymentCard, PaymentBankTransfer, PaymentCashOnDelivery:
		return true
	}
	return false
}

// PaymentProcessor identifies who settles the payment for an order.
type PaymentProcessor string

const (
	// ProcessorManual covers cash on delivery: settlement happens offline.
	ProcessorManual PaymentProcessor = "manual"
	// ProcessorPaystack is the external gateway handling all electronic methods.
	ProcessorPaystack PaymentProcessor = "paystack"
)

// ProcessorFor derives the payment processor from the payment method.
// Cash on delivery settles manually; everything else goes through the
// gateway. Set once at creation, never user-supplied.
func ProcessorFor(m PaymentMethod) PaymentProcessor {
	if m == PaymentCashOnDelivery {
		return ProcessorManual
	}
	return ProcessorPaystack
}

// PaymentStatus tracks settlement of an order, driven by the webhook or
// explicit admin action only.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// LineItem is one product-quantity-price tuple within an order. Price and
// VendorID are copied from the catalog at creation time and never updated,
// even if the catalog later changes.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	VendorID  string          `json:"vendor_id"`
}

// Delivery holds the free-form shipping details captured at creation.
type Delivery struct {
	FullName string `json:"full_name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Phone    string `json:"phone"`
}

// Order is a price- and ownership-immutable snapshot of a checkout.
type Order struct {
	ID         string
	CustomerID string
	Items      []LineItem

	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	CouponCode string
	Total      decimal.Decimal

	Delivery Delivery
	Status   Status

	PaymentMethod    PaymentMethod
	PaymentProcessor PaymentProcessor
	PaymentStatus    PaymentStatus
	PaymentReference string

	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	PaidAt      *time.Time

	Deleted   bool
	DeletedBy string
	DeletedAt *time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContainsVendor reports whether at least one line item belongs to the
// given vendor.
func (o *Order) ContainsVendor(vendorID string) bool {
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

// Filter restricts a List call to one actor's visible slice of orders.
// The zero value is unrestricted (admin).
type Filter struct {
	// CustomerID, when set, restricts to orders placed by that customer.
	CustomerID string
	// VendorID, when set, restricts to orders containing at least one line
	// item owned by that vendor.
	VendorID string
}

// Repository defines persistence operations for orders.
//
// GetByID and FindByPaymentReference return soft-deleted rows (callers
// decide what deletion means for their operation); List never does.
// Update must apply the mutation under per-order mutual exclusion: the
// webhook and a vendor's manual status update can race, and exactly one of
// them may win a given transition.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// CreateClearingCart persists the order and removes the customer's cart
	// in one transaction: no order with a stale cart, no cleared cart
	// without an order.
	CreateClearingCart(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	FindByPaymentReference(ctx context.Context, ref string) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, error)
	// Update loads the order, applies mutate under a per-order lock, and
	// persists the result. An error from mutate aborts the write and is
	// returned unchanged.
	Update(ctx context.Context, id string, mutate func(*Order) error) (*Order, error)
}

// ConfirmationDispatcher sends the best-effort order confirmation after
// creation. Failures are logged and swallowed; they never undo an order.
type ConfirmationDispatcher interface {
	OrderConfirmation(ctx context.Context, o *Order) error
}
