package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kofiasare/makola/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Items are
// serialized to a JSONB column; one row per customer.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the customer's cart, or cart.ErrNotFound.
func (r *CartRepository) Get(ctx context.Context, customerID string) (*cart.Cart, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT items, total, updated_at FROM carts WHERE customer_id = $1`, customerID)

	c := cart.Cart{CustomerID: customerID}
	var itemsJSON []byte
	if err := row.Scan(&itemsJSON, &c.Total, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for %q: %w", customerID, err)
	}

	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	return &c, nil
}

// Save upserts the customer's cart.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO carts (customer_id, items, total, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (customer_id)
		 DO UPDATE SET items = EXCLUDED.items, total = EXCLUDED.total, updated_at = EXCLUDED.updated_at`,
		c.CustomerID, itemsJSON, c.Total, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving cart for %q: %w", c.CustomerID, err)
	}
	return nil
}

// Clear removes the customer's cart row. Clearing an absent cart is a no-op.
func (r *CartRepository) Clear(ctx context.Context, customerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("clearing cart for %q: %w", customerID, err)
	}
	return nil
}
