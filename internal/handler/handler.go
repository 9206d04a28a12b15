// Package handler exposes the marketplace over HTTP. It converts wire DTOs
// to domain requests, delegates to the domain services, and maps domain
// errors to status codes. No business rules live here.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kofiasare/makola/internal/domain/cart"
	"github.com/kofiasare/makola/internal/domain/catalog"
	"github.com/kofiasare/makola/internal/domain/order"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the API routes, delegating business logic to the injected
// domain services.
type Handler struct {
	products     catalog.Repository
	carts        *cart.Service
	orders       *order.Service
	webhook      *Webhook
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, products catalog.Repository, carts *cart.Service, orders *order.Service, webhook *Webhook) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		orders:       orders,
		webhook:      webhook,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes mounts the API surface. The security middleware guards everything
// except the product catalog and the payment webhook, which the gateway
// calls without an API key.
func (h *Handler) Routes(sec *Security) chi.Router {
	r := chi.NewRouter()

	r.Get("/product", h.ListProducts)
	r.Get("/product/{productID}", h.GetProduct)
	r.Post("/webhook/payment", h.PaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(sec.RequireAPIKey)

		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart/items/{productID}", h.RemoveCartItem)

		r.Post("/order", h.CreateOrder)
		r.Get("/order", h.ListOrders)
		r.Get("/order/{orderID}", h.GetOrder)
		r.Patch("/order/{orderID}/status", h.UpdateOrderStatus)
		r.Delete("/order/{orderID}", h.DeleteOrder)
	})

	return r
}

func orderID(r *http.Request) string {
	return chi.URLParam(r, "orderID")
}

func productID(r *http.Request) string {
	return chi.URLParam(r, "productID")
}
