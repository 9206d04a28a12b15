package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/kofiasare/makola/internal/domain/catalog"
)

// ErrInvalidQuantity is returned when an add request carries a non-positive
// quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Service encapsulates cart mutation logic.
type Service struct {
	carts    Repository
	products catalog.Repository
	now      func() time.Time
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products catalog.Repository) *Service {
	return &Service{carts: carts, products: products, now: time.Now}
}

// Get returns the customer's cart. A customer who has never added an item
// gets an empty cart rather than an error.
func (s *Service) Get(ctx context.Context, customerID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Cart{CustomerID: customerID}, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// AddItem puts quantity units of a product into the customer's cart,
// creating the cart if needed. Adding a product already present merges the
// quantities and keeps the price snapshotted at first add.
func (s *Service) AddItem(ctx context.Context, customerID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	c, err := s.carts.Get(ctx, customerID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "get cart")
		}
		c = &Cart{CustomerID: customerID}
	}

	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, Item{
			ProductID: productID,
			Price:     p.Price,
			Quantity:  quantity,
		})
	}

	c.Recalculate()
	c.UpdatedAt = s.now()

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// RemoveItem drops a product from the customer's cart and recomputes the
// total. Removing a product that is not in the cart leaves it unchanged.
func (s *Service) RemoveItem(ctx context.Context, customerID, productID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept

	c.Recalculate()
	c.UpdatedAt = s.now()

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}
