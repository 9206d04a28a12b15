package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned when order creation finds nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when no order exists for a given id.
	ErrNotFound = errors.New("order not found")
	// ErrAccessDenied is returned when an authenticated actor operates on
	// an order outside their scope. Distinct from ErrNotFound: the order
	// exists, the actor may not see it.
	ErrAccessDenied = errors.New("access denied")
	// ErrTerminal is returned when a mutation targets a delivered,
	// cancelled, or soft-deleted order.
	ErrTerminal = errors.New("order is in a terminal state")
	// ErrUnknownPaymentMethod is returned when a creation request carries a
	// payment method outside the closed enumeration.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	// ErrUnknownStatus is returned when a transition request names a status
	// that does not exist.
	ErrUnknownStatus = errors.New("unknown order status")
)

// ProductNotFoundError indicates a requested product does not exist in the
// catalog. Creation fails atomically on the first missing item.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidTransitionError indicates a state-machine violation: skipping a
// state, moving backward, or re-entering the current state.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
