// Package notification implements the order confirmation dispatcher.
// Actual email delivery is an external concern; the shipped implementation
// records the dispatch in the log so operators can trace it.
package notification

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kofiasare/makola/internal/domain/order"
)

// LogDispatcher satisfies order.ConfirmationDispatcher by logging the
// confirmation instead of sending mail.
type LogDispatcher struct{}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

// OrderConfirmation logs the confirmation dispatch.
func (d *LogDispatcher) OrderConfirmation(ctx context.Context, o *order.Order) error {
	zctx.From(ctx).Info("order confirmation dispatched",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.String("total", o.Total.String()),
	)
	return nil
}
