package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kofiasare/makola/internal/domain/cart"
	"github.com/kofiasare/makola/internal/domain/catalog"
	"github.com/kofiasare/makola/internal/domain/coupon"
	"github.com/kofiasare/makola/internal/domain/identity"
)

// ServiceConfig holds non-dependency tuning for the order engine.
type ServiceConfig struct {
	// SnapshotTimeout bounds the catalog lookups performed while building
	// an order. On timeout the whole creation attempt fails; a partial
	// order is never produced.
	SnapshotTimeout time.Duration
}

// Service is the order engine. All collaborators are injected; the engine
// holds no process-wide state.
type Service struct {
	catalog  catalog.Repository
	carts    cart.Repository
	coupons  coupon.Validator
	orders   Repository
	notifier ConfirmationDispatcher

	snapshotTimeout time.Duration
	now             func() time.Time
}

// NewService creates the order engine with the required collaborators.
func NewService(
	cfg ServiceConfig,
	products catalog.Repository,
	carts cart.Repository,
	coupons coupon.Validator,
	orders Repository,
	notifier ConfirmationDispatcher,
) *Service {
	timeout := cfg.SnapshotTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		catalog:         products,
		carts:           carts,
		coupons:         coupons,
		orders:          orders,
		notifier:        notifier,
		snapshotTimeout: timeout,
		now:             time.Now,
	}
}

// ItemRequest is one requested line in a direct-creation order.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateRequest holds the input for placing an order. When Items is empty
// the caller's cart supplies the line items and is cleared transactionally
// on success.
type CreateRequest struct {
	Items         []ItemRequest
	Delivery      Delivery
	PaymentMethod PaymentMethod
	CouponCode    string
}

// Create places an order for the acting customer. Every referenced product
// is resolved in the catalog at this instant; the customer pays the price
// in effect at order time, not at cart-add time.
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateRequest) (*Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, ErrUnknownPaymentMethod
	}

	items := req.Items
	fromCart := len(items) == 0
	if fromCart {
		c, err := s.carts.Get(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return nil, ErrEmptyCart
			}
			return nil, errors.Wrap(err, "load cart")
		}
		if len(c.Items) == 0 {
			return nil, ErrEmptyCart
		}
		items = make([]ItemRequest, len(c.Items))
		for i, it := range c.Items {
			items[i] = ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
		}
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
	}

	lineItems, err := s.snapshotItems(ctx, items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, li := range lineItems {
		subtotal = subtotal.Add(li.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}

	discount := decimal.Zero
	if req.CouponCode != "" {
		couponItems := make([]coupon.Item, len(lineItems))
		for i, li := range lineItems {
			couponItems[i] = coupon.Item{
				ProductID: li.ProductID,
				Price:     li.Price,
				Quantity:  li.Quantity,
			}
		}
		d, err := s.coupons.Validate(ctx, req.CouponCode, couponItems)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
	}

	// Total = subtotal - discount, floored at zero and rounded to 2 decimal places.
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)
	subtotal = subtotal.Round(2)
	discount = discount.Round(2)

	processor := ProcessorFor(req.PaymentMethod)

	// Gateway-settled orders get their reference up front so the webhook
	// has a stable idempotence key to match on.
	paymentRef := ""
	if processor != ProcessorManual {
		paymentRef = uuid.New().String()
	}

	now := s.now()
	o := &Order{
		ID:               uuid.New().String(),
		CustomerID:       actor.ID,
		Items:            lineItems,
		Subtotal:         subtotal,
		Discount:         discount,
		CouponCode:       req.CouponCode,
		Total:            total,
		Delivery:         req.Delivery,
		Status:           StatusPending,
		PaymentMethod:    req.PaymentMethod,
		PaymentProcessor: processor,
		PaymentStatus:    PaymentPending,
		PaymentReference: paymentRef,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if fromCart {
		err = s.orders.CreateClearingCart(ctx, o)
	} else {
		err = s.orders.Create(ctx, o)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Confirmation is best effort and runs detached: its failure is logged
	// and never surfaced to the caller, and it never undoes the order.
	go s.dispatchConfirmation(context.WithoutCancel(ctx), o)

	return o, nil
}

// snapshotItems resolves price and owning vendor for every requested
// product, concurrently, under a bounded timeout. The first missing product
// fails the whole operation.
func (s *Service) snapshotItems(ctx context.Context, items []ItemRequest) ([]LineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.snapshotTimeout)
	defer cancel()

	lineItems := make([]LineItem, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, it := range items {
		g.Go(func() error {
			p, err := s.catalog.GetByID(gctx, it.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return &ProductNotFoundError{ProductID: it.ProductID}
				}
				return errors.Wrapf(err, "get product %s", it.ProductID)
			}
			lineItems[i] = LineItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     p.Price,
				VendorID:  p.VendorID,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lineItems, nil
}

func (s *Service) dispatchConfirmation(ctx context.Context, o *Order) {
	defer func() {
		if rec := recover(); rec != nil {
			zctx.From(ctx).Error("confirmation dispatch panicked",
				zap.String("order_id", o.ID), zap.Any("panic", rec))
		}
	}()

	if err := s.notifier.OrderConfirmation(ctx, o); err != nil {
		zctx.From(ctx).Warn("confirmation dispatch failed",
			zap.String("order_id", o.ID), zap.Error(err))
	}
}

// capabilities is the per-(actor, order) authorization decision, resolved
// in one place instead of re-branched per endpoint.
type capabilities struct {
	view    bool
	advance bool // pending→confirmed→shipped→delivered
	cancel  bool
	del     bool
}

func capabilitiesFor(actor identity.Actor, o *Order) capabilities {
	switch actor.Role {
	case identity.RoleAdmin:
		return capabilities{view: true, advance: true, cancel: true, del: true}
	case identity.RoleCustomer:
		own := o.CustomerID == actor.ID
		return capabilities{view: own, cancel: own, del: own}
	case identity.RoleVendor:
		in := o.ContainsVendor(actor.ID)
		return capabilities{view: in, advance: in}
	}
	return capabilities{}
}

// Get returns one order if the actor may see it. Soft-deleted orders are
// invisible to everyone; an order outside the actor's scope yields
// ErrAccessDenied, not ErrNotFound.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Deleted {
		return nil, ErrNotFound
	}
	if !capabilitiesFor(actor, o).view {
		return nil, ErrAccessDenied
	}
	return o, nil
}

// List returns the actor's visible orders: customers see their own, vendors
// see orders containing their products, admins see everything. Soft-deleted
// orders are always excluded.
func (s *Service) List(ctx context.Context, actor identity.Actor) ([]*Order, error) {
	var f Filter
	switch actor.Role {
	case identity.RoleCustomer:
		f.CustomerID = actor.ID
	case identity.RoleVendor:
		f.VendorID = actor.ID
	case identity.RoleAdmin:
		// unrestricted
	default:
		return nil, ErrAccessDenied
	}
	return s.orders.List(ctx, f)
}

// Transition moves an order through the fulfillment state machine. Vendors
// owning a line item (or admins) advance; the owning customer (or admins)
// cancels. The matching timestamp is stamped exactly once.
func (s *Service) Transition(ctx context.Context, actor identity.Actor, id string, target Status) (*Order, error) {
	if !target.Valid() {
		return nil, ErrUnknownStatus
	}

	return s.orders.Update(ctx, id, func(o *Order) error {
		if o.Deleted || o.Status.Terminal() {
			return ErrTerminal
		}

		caps := capabilitiesFor(actor, o)
		if target == StatusCancelled {
			if !caps.cancel {
				return ErrAccessDenied
			}
		} else if !caps.advance {
			return ErrAccessDenied
		}

		if !o.Status.CanTransitionTo(target) {
			return &InvalidTransitionError{From: o.Status, To: target}
		}

		o.Status = target
		s.stampStatus(o, target)
		o.UpdatedAt = s.now()
		return nil
	})
}

// stampStatus records the transition timestamp for target, exactly once.
func (s *Service) stampStatus(o *Order, target Status) {
	now := s.now()
	switch target {
	case StatusConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case StatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	}
}

// Delete soft-deletes an order, recording who and when. Deleting an
// already-deleted order is a no-op success and leaves the original audit
// pair untouched. The record is never physically removed.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id string) error {
	_, err := s.orders.Update(ctx, id, func(o *Order) error {
		if !capabilitiesFor(actor, o).del {
			return ErrAccessDenied
		}
		if o.Deleted {
			return nil
		}
		now := s.now()
		o.Deleted = true
		o.DeletedBy = actor.ID
		o.DeletedAt = &now
		o.UpdatedAt = now
		return nil
	})
	return err
}

// PaymentOutcome is the result carried by a gateway webhook event.
type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
)

// PaymentEvent is one webhook delivery from the payment gateway.
type PaymentEvent struct {
	Reference string
	Outcome   PaymentOutcome
}

// ReconcilePayment applies a gateway webhook event to the matching order.
//
// The caller is untrusted and gateways redeliver events, so this is where
// all the protective work happens: an unknown reference is logged and
// dropped, a repeat delivery of a succeeded event is a no-op (PaidAt is
// never re-stamped), and a succeeded payment auto-advances pending orders
// to confirmed without overriding a vendor who already moved the order on.
// Only storage failures are reported to the caller.
func (s *Service) ReconcilePayment(ctx context.Context, ev PaymentEvent) error {
	lg := zctx.From(ctx)

	if ev.Reference == "" {
		lg.Info("payment event without reference, dropping")
		return nil
	}
	if ev.Outcome != OutcomeSucceeded && ev.Outcome != OutcomeFailed {
		lg.Info("payment event with unknown outcome, dropping",
			zap.String("reference", ev.Reference), zap.String("outcome", string(ev.Outcome)))
		return nil
	}

	matched, err := s.orders.FindByPaymentReference(ctx, ev.Reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			lg.Info("payment event matched no order",
				zap.String("reference", ev.Reference))
			return nil
		}
		return errors.Wrap(err, "find order by payment reference")
	}

	_, err = s.orders.Update(ctx, matched.ID, func(o *Order) error {
		switch ev.Outcome {
		case OutcomeSucceeded:
			if o.PaymentStatus == PaymentPaid {
				// Gateway redelivery: already reconciled.
				return nil
			}
			now := s.now()
			o.PaymentStatus = PaymentPaid
			o.PaidAt = &now
			// Payment confirmation implies order confirmation, but only
			// while the order is still pending and not soft-deleted: a
			// vendor who already advanced it is never overridden, and a
			// deleted order keeps its payment audit without moving.
			if !o.Deleted && o.Status == StatusPending {
				o.Status = StatusConfirmed
				if o.ConfirmedAt == nil {
					o.ConfirmedAt = &now
				}
			}
			o.UpdatedAt = now
		case OutcomeFailed:
			if o.PaymentStatus == PaymentPaid {
				// Never downgrade a settled order.
				return nil
			}
			o.PaymentStatus = PaymentFailed
			o.UpdatedAt = s.now()
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "apply payment event")
	}

	return nil
}
