package handler

import (
	"net/http"
	"time"

	"github.com/kofiasare/makola/internal/domain/cart"
)

type cartItemDTO struct {
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type cartDTO struct {
	CustomerID string        `json:"customerId"`
	Items      []cartItemDTO `json:"items"`
	Total      float64       `json:"totalPrice"`
	UpdatedAt  *time.Time    `json:"updatedAt,omitempty"`
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// GetCart returns the caller's cart. Customers who never added anything get
// an empty cart, not a 404.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.carts.Get(r.Context(), a.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartToDTO(c))
}

// AddCartItem puts a product into the caller's cart, merging quantities when
// the product is already present.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req addCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	c, err := h.carts.AddItem(r.Context(), a.ID, req.ProductID, req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartToDTO(c))
}

// RemoveCartItem drops a product from the caller's cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), a.ID, productID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartToDTO(c))
}

func cartToDTO(c *cart.Cart) cartDTO {
	items := make([]cartItemDTO, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemDTO{
			ProductID: it.ProductID,
			Price:     it.Price.InexactFloat64(),
			Quantity:  it.Quantity,
		}
	}
	dto := cartDTO{
		CustomerID: c.CustomerID,
		Items:      items,
		Total:      c.Total.InexactFloat64(),
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		dto.UpdatedAt = &t
	}
	return dto
}
