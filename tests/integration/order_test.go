//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func testDelivery() deliveryRequest {
	return deliveryRequest{
		FullName: "Ama Mensah",
		Address:  "12 Ring Road",
		City:     "Accra",
		Region:   "Greater Accra",
		Phone:    "0244000000",
	}
}

func placeOrder(t *testing.T, items []orderItemRequest, couponCode string) orderResponse {
	t.Helper()

	resp := doPostWithAuth(t, "/api/order", orderRequest{
		Items:         items,
		Delivery:      testDelivery(),
		PaymentMethod: "mobile_money",
		CouponCode:    couponCode,
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[orderResponse](t, resp)
}

func TestCreateOrder_NoAuth(t *testing.T) {
	resp := doPost(t, "/api/order", orderRequest{
		Items:         []orderItemRequest{{ProductID: "1", Quantity: 1}},
		PaymentMethod: "card",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InvalidKey(t *testing.T) {
	resp := doPostWithAuth(t, "/api/order", orderRequest{
		Items:         []orderItemRequest{{ProductID: "1", Quantity: 1}},
		PaymentMethod: "card",
	}, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_EmptyItemsWithoutCart(t *testing.T) {
	resp := doPostWithAuth(t, "/api/order", orderRequest{
		Delivery:      testDelivery(),
		PaymentMethod: "card",
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	resp := doPostWithAuth(t, "/api/order", orderRequest{
		Items:         []orderItemRequest{{ProductID: "999", Quantity: 1}},
		Delivery:      testDelivery(),
		PaymentMethod: "card",
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_SingleItem(t *testing.T) {
	// Waakye Special $6.50
	order := placeOrder(t, []orderItemRequest{{ProductID: "1", Quantity: 1}}, "")

	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.TotalAmount != 6.5 {
		t.Errorf("totalAmount: got %v, want 6.5", order.TotalAmount)
	}
	if order.FinalAmount != 6.5 {
		t.Errorf("finalAmount: got %v, want 6.5", order.FinalAmount)
	}
	if order.Status != "pending" {
		t.Errorf("status: got %q, want pending", order.Status)
	}
	if order.PaymentProcessor != "paystack" {
		t.Errorf("paymentProcessor: got %q, want paystack", order.PaymentProcessor)
	}
	if order.PaymentReference == "" {
		t.Error("paymentReference is empty for a gateway order")
	}
	if len(order.Items) != 1 || order.Items[0].VendorID != "vend-1" {
		t.Errorf("items: got %+v, want one line owned by vend-1", order.Items)
	}
}

func TestCreateOrder_HappyHoursCoupon(t *testing.T) {
	// Banku with Tilapia $8.00, 18% off = 1.44
	order := placeOrder(t, []orderItemRequest{{ProductID: "3", Quantity: 1}}, "HAPPYHOURS")

	if order.DiscountAmount != 1.44 {
		t.Errorf("discountAmount: got %v, want 1.44", order.DiscountAmount)
	}
	if order.FinalAmount != 6.56 {
		t.Errorf("finalAmount: got %v, want 6.56", order.FinalAmount)
	}
}

func TestCreateOrder_BuyGetOne(t *testing.T) {
	// Waakye $6.50 + Kelewele $4.00, lowest free.
	order := placeOrder(t, []orderItemRequest{
		{ProductID: "1", Quantity: 1},
		{ProductID: "5", Quantity: 1},
	}, "BUYGETONE")

	if order.DiscountAmount != 4 {
		t.Errorf("discountAmount: got %v, want 4", order.DiscountAmount)
	}
	if order.FinalAmount != 6.5 {
		t.Errorf("finalAmount: got %v, want 6.5", order.FinalAmount)
	}
}

func TestCreateOrder_InvalidCoupon(t *testing.T) {
	resp := doPostWithAuth(t, "/api/order", orderRequest{
		Items:         []orderItemRequest{{ProductID: "1", Quantity: 1}},
		Delivery:      testDelivery(),
		PaymentMethod: "card",
		CouponCode:    "NONEXISTENT",
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_CashOnDelivery(t *testing.T) {
	resp := doPostWithAuth(t, "/api/order", orderRequest{
		Items:         []orderItemRequest{{ProductID: "2", Quantity: 1}},
		Delivery:      testDelivery(),
		PaymentMethod: "cash_on_delivery",
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.PaymentProcessor != "manual" {
		t.Errorf("paymentProcessor: got %q, want manual", order.PaymentProcessor)
	}
	if order.PaymentReference != "" {
		t.Errorf("paymentReference: got %q, want empty for manual settlement", order.PaymentReference)
	}
}

func TestOrderLifecycle_VendorAdvancesCustomerSees(t *testing.T) {
	order := placeOrder(t, []orderItemRequest{{ProductID: "1", Quantity: 1}}, "")

	for _, status := range []string{"confirmed", "shipped", "delivered"} {
		resp := doPatchWithAuth(t, "/api/order/"+order.ID+"/status",
			map[string]string{"status": status}, vendorKey)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("transition to %s: expected 200, got %d", status, resp.StatusCode)
		}
		got := decodeJSON[orderResponse](t, resp)
		resp.Body.Close()
		if got.Status != status {
			t.Fatalf("status after transition: got %q, want %q", got.Status, status)
		}
	}

	resp := doGetWithAuth(t, "/api/order/"+order.ID, customerKey)
	defer resp.Body.Close()
	got := decodeJSON[orderResponse](t, resp)
	if got.Status != "delivered" {
		t.Errorf("customer view: got %q, want delivered", got.Status)
	}
}

func TestOrderLifecycle_SkippingStateConflicts(t *testing.T) {
	order := placeOrder(t, []orderItemRequest{{ProductID: "1", Quantity: 1}}, "")

	resp := doPatchWithAuth(t, "/api/order/"+order.ID+"/status",
		map[string]string{"status": "delivered"}, vendorKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestOrderLifecycle_CustomerCannotAdvance(t *testing.T) {
	order := placeOrder(t, []orderItemRequest{{ProductID: "1", Quantity: 1}}, "")

	resp := doPatchWithAuth(t, "/api/order/"+order.ID+"/status",
		map[string]string{"status": "confirmed"}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestOrderDelete_ThenInvisibleToAdmin(t *testing.T) {
	order := placeOrder(t, []orderItemRequest{{ProductID: "1", Quantity: 1}}, "")

	resp := doDeleteWithAuth(t, "/api/order/"+order.ID, customerKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doGetWithAuth(t, "/api/order/"+order.ID, adminKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCartCheckout_ClearsCart(t *testing.T) {
	resp := doPostWithAuth(t, "/api/cart/items",
		map[string]any{"productId": "2", "quantity": 2}, customerKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: expected 200, got %d", resp.StatusCode)
	}

	resp = doPostWithAuth(t, "/api/order", orderRequest{
		Delivery:      testDelivery(),
		PaymentMethod: "card",
	}, customerKey)
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	// 2x Jollof $7.00
	if order.TotalAmount != 14 {
		t.Errorf("totalAmount: got %v, want 14", order.TotalAmount)
	}

	resp = doGetWithAuth(t, "/api/cart", customerKey)
	defer resp.Body.Close()
	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 0 {
		t.Errorf("cart not cleared after checkout: %+v", cart.Items)
	}
}

func TestPaymentWebhook_SucceededConfirmsOrder(t *testing.T) {
	order := placeOrder(t, []orderItemRequest{{ProductID: "1", Quantity: 1}}, "")

	resp := doPost(t, "/api/webhook/payment", webhookEvent{
		Reference: order.PaymentReference,
		Outcome:   "succeeded",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", resp.StatusCode)
	}

	resp = doGetWithAuth(t, "/api/order/"+order.ID, customerKey)
	defer resp.Body.Close()
	got := decodeJSON[orderResponse](t, resp)
	if got.PaymentStatus != "paid" {
		t.Errorf("paymentStatus: got %q, want paid", got.PaymentStatus)
	}
	if got.Status != "confirmed" {
		t.Errorf("status: got %q, want confirmed", got.Status)
	}
}

func TestPaymentWebhook_UnknownReferenceAcknowledged(t *testing.T) {
	resp := doPost(t, "/api/webhook/payment", webhookEvent{
		Reference: "no-such-reference",
		Outcome:   "succeeded",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
