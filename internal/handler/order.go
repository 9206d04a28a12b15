package handler

import (
	"net/http"
	"time"

	"github.com/kofiasare/makola/internal/domain/order"
)

type orderItemDTO struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	VendorID  string  `json:"vendorId"`
}

type deliveryDTO struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Phone    string `json:"phone"`
}

type orderDTO struct {
	ID               string         `json:"id"`
	CustomerID       string         `json:"customerId"`
	Items            []orderItemDTO `json:"items"`
	TotalAmount      float64        `json:"totalAmount"`
	DiscountAmount   float64        `json:"discountAmount"`
	CouponCode       string         `json:"couponCode,omitempty"`
	FinalAmount      float64        `json:"finalAmount"`
	Delivery         deliveryDTO    `json:"delivery"`
	Status           string         `json:"status"`
	PaymentMethod    string         `json:"paymentMethod"`
	PaymentProcessor string         `json:"paymentProcessor"`
	PaymentStatus    string         `json:"paymentStatus"`
	PaymentReference string         `json:"paymentReference,omitempty"`
	ConfirmedAt      *time.Time     `json:"confirmedAt,omitempty"`
	ShippedAt        *time.Time     `json:"shippedAt,omitempty"`
	DeliveredAt      *time.Time     `json:"deliveredAt,omitempty"`
	PaidAt           *time.Time     `json:"paidAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type createOrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items         []createOrderItemRequest `json:"items"`
	Delivery      deliveryDTO              `json:"delivery"`
	PaymentMethod string                   `json:"paymentMethod"`
	CouponCode    string                   `json:"couponCode"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// CreateOrder places an order for the caller. When the request carries no
// items the caller's cart is used and cleared on success.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := h.orders.Create(r.Context(), a, order.CreateRequest{
		Items: items,
		Delivery: order.Delivery{
			FullName: req.Delivery.FullName,
			Address:  req.Delivery.Address,
			City:     req.Delivery.City,
			Region:   req.Delivery.Region,
			Phone:    req.Delivery.Phone,
		},
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, orderToDTO(o))
}

// ListOrders returns the caller's visible orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orders.List(r.Context(), a)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]orderDTO, len(orders))
	for i, o := range orders {
		out[i] = orderToDTO(o)
	}
	respondJSON(w, http.StatusOK, out)
}

// GetOrder returns one order if the caller may see it.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	o, err := h.orders.Get(r.Context(), a, orderID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderToDTO(o))
}

// UpdateOrderStatus moves an order through the fulfillment state machine.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateOrderStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.Transition(r.Context(), a, orderID(r), order.Status(req.Status))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderToDTO(o))
}

// DeleteOrder soft-deletes an order. Repeating the call succeeds without
// changing the recorded audit trail.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.orders.Delete(r.Context(), a, orderID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func orderToDTO(o *order.Order) orderDTO {
	items := make([]orderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDTO{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.InexactFloat64(),
			VendorID:  it.VendorID,
		}
	}
	return orderDTO{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		Items:          items,
		TotalAmount:    o.Subtotal.InexactFloat64(),
		DiscountAmount: o.Discount.InexactFloat64(),
		CouponCode:     o.CouponCode,
		FinalAmount:    o.Total.InexactFloat64(),
		Delivery: deliveryDTO{
			FullName: o.Delivery.FullName,
			Address:  o.Delivery.Address,
			City:     o.Delivery.City,
			Region:   o.Delivery.Region,
			Phone:    o.Delivery.Phone,
		},
		Status:           string(o.Status),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentProcessor: string(o.PaymentProcessor),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentReference: o.PaymentReference,
		ConfirmedAt:      o.ConfirmedAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		PaidAt:           o.PaidAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
