package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kofiasare/makola/internal/domain/cart"
	"github.com/kofiasare/makola/internal/domain/catalog"
	"github.com/kofiasare/makola/internal/domain/coupon"
	"github.com/kofiasare/makola/internal/domain/order"
)

// errorResponse is the uniform error body for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors to HTTP status codes. Anything not
// recognised is a 500 with a generic body; the cause goes to the log, not
// the client.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr *order.InvalidQuantityError
		pnErr *order.ProductNotFoundError
		itErr *order.InvalidTransitionError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrUnknownPaymentMethod),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.As(err, &iqErr),
		errors.As(err, &pnErr):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")

	case errors.Is(err, order.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "access denied")

	case errors.Is(err, order.ErrTerminal),
		errors.As(err, &itErr):
		respondError(w, http.StatusConflict, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
