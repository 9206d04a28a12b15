package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kofiasare/makola/internal/domain/order"
)

const orderColumns = `id, customer_id, items, subtotal, discount, coupon_code, total,
	delivery, status, payment_method, payment_processor, payment_status, payment_reference,
	confirmed_at, shipped_at, delivered_at, paid_at,
	deleted, deleted_by, deleted_at, version, created_at, updated_at`

const insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

const updateOrderSQL = `UPDATE orders SET
	status = $2, payment_status = $3, payment_reference = $4,
	confirmed_at = $5, shipped_at = $6, delivered_at = $7, paid_at = $8,
	deleted = $9, deleted_by = $10, deleted_at = $11,
	version = version + 1, updated_at = $12
	WHERE id = $1`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
//
// Mutations run inside a transaction that locks the order row with
// SELECT ... FOR UPDATE, giving the single-writer-per-order guarantee the
// engine relies on when the payment webhook and a manual status update race.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	args, err := insertArgs(o)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertOrderSQL, args...); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// CreateClearingCart persists the order and deletes the customer's cart in
// one transaction. Either both happen or neither does.
func (r *OrderRepository) CreateClearingCart(ctx context.Context, o *order.Order) error {
	args, err := insertArgs(o)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkout transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, insertOrderSQL, args...); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE customer_id = $1`, o.CustomerID); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", o.CustomerID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkout transaction: %w", err)
	}
	return nil
}

// GetByID returns the order with the given id, including soft-deleted rows.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// FindByPaymentReference returns the order carrying the given gateway
// reference, including soft-deleted rows (webhook audit still applies to
// them).
func (r *OrderRepository) FindByPaymentReference(ctx context.Context, ref string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1 AND payment_reference <> ''`, ref)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order by payment reference: %w", err)
	}
	return o, nil
}

// List returns non-deleted orders matching the filter, newest first. The
// vendor filter uses JSONB containment against the line items, served by
// the GIN index on the items column.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE NOT deleted`
	args := []any{}

	switch {
	case f.CustomerID != "":
		query += ` AND customer_id = $1`
		args = append(args, f.CustomerID)
	case f.VendorID != "":
		needle, err := json.Marshal([]map[string]string{{"vendor_id": f.VendorID}})
		if err != nil {
			return nil, fmt.Errorf("marshaling vendor filter: %w", err)
		}
		query += ` AND items @> $1::jsonb`
		args = append(args, string(needle))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Update loads the order under a row lock, applies mutate, and writes the
// mutable fields back. An error from mutate rolls the transaction back and
// is returned to the caller unchanged so domain sentinels survive.
func (r *OrderRepository) Update(ctx context.Context, id string, mutate func(*order.Order) error) (*order.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}

	if err := mutate(o); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.PaymentStatus, o.PaymentReference,
		o.ConfirmedAt, o.ShippedAt, o.DeliveredAt, o.PaidAt,
		o.Deleted, o.DeletedBy, o.DeletedAt, o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing update transaction: %w", err)
	}
	o.Version++
	return o, nil
}

func insertArgs(o *order.Order) ([]any, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}
	deliveryJSON, err := json.Marshal(o.Delivery)
	if err != nil {
		return nil, fmt.Errorf("marshaling delivery info: %w", err)
	}

	return []any{
		o.ID, o.CustomerID, itemsJSON, o.Subtotal, o.Discount, o.CouponCode, o.Total,
		deliveryJSON, o.Status, o.PaymentMethod, o.PaymentProcessor, o.PaymentStatus, o.PaymentReference,
		o.ConfirmedAt, o.ShippedAt, o.DeliveredAt, o.PaidAt,
		o.Deleted, o.DeletedBy, o.DeletedAt, o.Version, o.CreatedAt, o.UpdatedAt,
	}, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o            order.Order
		itemsJSON    []byte
		deliveryJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &itemsJSON, &o.Subtotal, &o.Discount, &o.CouponCode, &o.Total,
		&deliveryJSON, &o.Status, &o.PaymentMethod, &o.PaymentProcessor, &o.PaymentStatus, &o.PaymentReference,
		&o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt, &o.PaidAt,
		&o.Deleted, &o.DeletedBy, &o.DeletedAt, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(deliveryJSON, &o.Delivery); err != nil {
		return nil, fmt.Errorf("unmarshaling delivery info: %w", err)
	}
	return &o, nil
}
