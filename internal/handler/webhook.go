package handler

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kofiasare/makola/internal/domain/order"
)

// WebhookSignatureHeader carries the gateway's HMAC-SHA512 hex signature of
// the raw request body.
const WebhookSignatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20

// WebhookConfig configures the payment webhook endpoint.
type WebhookConfig struct {
	// Secret verifies gateway signatures. When empty, signature checking is
	// disabled and every delivery is accepted.
	Secret []byte
}

// Webhook receives payment gateway deliveries. Deliveries are acknowledged
// with 200 even when they are malformed or match nothing, so the gateway
// stops redelivering junk; only a bad signature is rejected.
type Webhook struct {
	orders *order.Service
	secret []byte
}

// NewWebhook creates the webhook receiver.
func NewWebhook(cfg WebhookConfig, orders *order.Service) *Webhook {
	return &Webhook{orders: orders, secret: cfg.Secret}
}

// PaymentWebhook handles POST /webhook/payment on behalf of the Handler.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	h.webhook.ServeHTTP(w, r)
}

// ServeHTTP processes one gateway delivery.
func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		lg.Info("webhook body unreadable", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if len(wh.secret) > 0 && !wh.verifySignature(body, r.Header.Get(WebhookSignatureHeader)) {
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	ev, err := decodePaymentEvent(body)
	if err != nil {
		lg.Info("webhook payload malformed, dropping", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := wh.orders.ReconcilePayment(r.Context(), ev); err != nil {
		// The gateway will redeliver; the failure is ours to investigate.
		lg.Error("payment reconciliation failed",
			zap.String("reference", ev.Reference), zap.Error(err))
	}
	w.WriteHeader(http.StatusOK)
}

func (wh *Webhook) verifySignature(body []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, wh.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// decodePaymentEvent parses the gateway payload, tolerating unknown fields.
func decodePaymentEvent(body []byte) (order.PaymentEvent, error) {
	var ev order.PaymentEvent
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "reference":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.Reference = v
			return nil
		case "outcome":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.Outcome = order.PaymentOutcome(v)
			return nil
		default:
			return d.Skip()
		}
	})
	return ev, err
}
