// internal/domain/payment/service_test.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/errs"
)

const testKeySecret = "test_secret"

// memoryIntents implements Repository for tests.
type memoryIntents struct {
	mu      sync.Mutex
	nextID  uint
	byOrder map[uint]*Intent
}

func newMemoryIntents() *memoryIntents {
	return &memoryIntents{nextID: 1, byOrder: make(map[uint]*Intent)}
}

func (m *memoryIntents) Create(_ context.Context, intent *Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent.ID = m.nextID
	m.nextID++
	m.byOrder[intent.OrderID] = intent
	return nil
}

func (m *memoryIntents) GetByOrderID(_ context.Context, orderID uint) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.byOrder[orderID]
	if !ok {
		return nil, fmt.Errorf("intent for order %d: %w", orderID, errs.ErrNotFound)
	}
	return intent, nil
}

func (m *memoryIntents) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, intent := range m.byOrder {
		if intent.GatewayOrderID == gatewayOrderID {
			return intent, nil
		}
	}
	return nil, fmt.Errorf("intent for gateway order %s: %w", gatewayOrderID, errs.ErrNotFound)
}

// fakeOrders implements Orders for tests.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[uint]*order.Order
}

func newFakeOrders(orders ...*order.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[uint]*order.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetOrder(_ context.Context, userID, orderID uint) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, errs.ErrNotFound)
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, orderID uint, receipt order.Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, errs.ErrNotFound)
	}
	if o.PaymentStatus == order.PaymentStatusPaid {
		if o.PaymentID == receipt.PaymentID {
			return nil
		}
		return fmt.Errorf("order %d settled by payment %s: %w", orderID, o.PaymentID, errs.ErrAlreadyPaid)
	}
	o.PaymentStatus = order.PaymentStatusPaid
	o.PaymentID = receipt.PaymentID
	o.PaymentMethod = receipt.Method
	paidAt := receipt.PaidAt
	o.PaidAt = &paidAt
	return nil
}

// gatewayServer fakes the Razorpay orders endpoint and counts calls.
func gatewayServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)

		username, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", username)

		var req GatewayOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		*calls++
		json.NewEncoder(w).Encode(GatewayOrder{
			ID:       "order_gw123",
			Entity:   "order",
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Status:   "created",
		})
	}))
}

func testGatewayConfig(baseURL string) *config.Config {
	return &config.Config{
		External: config.ExternalConfig{
			Razorpay: config.RazorpayConfig{
				KeyID:     "rzp_test_key",
				KeySecret: testKeySecret,
				BaseURL:   baseURL,
				Timeout:   5 * time.Second,
			},
		},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func unpaidOrder(id, userID uint) *order.Order {
	return &order.Order{
		ID:            id,
		OrderNumber:   fmt.Sprintf("ORD-20260830-%05d", id),
		UserID:        userID,
		PaymentStatus: order.PaymentStatusUnpaid,
		TotalAmount:   decimal.NewFromInt(121),
		Currency:      "INR",
	}
}

func sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateIntentRequiresGatewayConfig(t *testing.T) {
	cfg := &config.Config{}
	svc := NewService(newMemoryIntents(), newFakeOrders(), NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	_, err := svc.CreateIntent(context.Background(), 7, 1)
	assert.ErrorIs(t, err, errs.ErrUnavailable)

	_, err = svc.VerifyPayment(context.Background(), 7, &VerifyRequest{
		OrderID:        1,
		GatewayOrderID: "order_gw123",
		PaymentID:      "pay_abc",
		Signature:      "sig",
	})
	assert.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestCreateIntentOpensGatewayOrder(t *testing.T) {
	var calls int
	ts := gatewayServer(t, &calls)
	defer ts.Close()

	cfg := testGatewayConfig(ts.URL)
	intents := newMemoryIntents()
	svc := NewService(intents, newFakeOrders(unpaidOrder(1, 7)), NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	resp, err := svc.CreateIntent(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, "order_gw123", resp.GatewayOrderID)
	assert.Equal(t, int64(12100), resp.Amount) // 121.00 in paise
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, "rzp_test_key", resp.KeyID)
	assert.Equal(t, "ORD-20260830-00001", resp.Receipt)

	stored, err := intents.GetByOrderID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "order_gw123", stored.GatewayOrderID)
	assert.Equal(t, int64(12100), stored.Amount)
}

func TestCreateIntentHidesGatewayErrorDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"description":"internal upstream stack trace"}}`)
	}))
	defer ts.Close()

	cfg := testGatewayConfig(ts.URL)
	svc := NewService(newMemoryIntents(), newFakeOrders(unpaidOrder(1, 7)), NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	_, err := svc.CreateIntent(context.Background(), 7, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnavailable)
	assert.NotContains(t, err.Error(), "stack trace")
}

func TestCreateIntentIsIdempotentPerOrder(t *testing.T) {
	var calls int
	ts := gatewayServer(t, &calls)
	defer ts.Close()

	cfg := testGatewayConfig(ts.URL)
	svc := NewService(newMemoryIntents(), newFakeOrders(unpaidOrder(1, 7)), NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	first, err := svc.CreateIntent(context.Background(), 7, 1)
	require.NoError(t, err)

	second, err := svc.CreateIntent(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Equal(t, 1, calls, "gateway should be called once per order")
}

func TestCreateIntentRejectsPaidAndForeignOrders(t *testing.T) {
	var calls int
	ts := gatewayServer(t, &calls)
	defer ts.Close()

	paid := unpaidOrder(1, 7)
	paid.PaymentStatus = order.PaymentStatusPaid

	cfg := testGatewayConfig(ts.URL)
	svc := NewService(newMemoryIntents(), newFakeOrders(paid), NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	_, err := svc.CreateIntent(context.Background(), 7, 1)
	assert.ErrorIs(t, err, errs.ErrAlreadyPaid)

	// Another user's order is invisible.
	_, err = svc.CreateIntent(context.Background(), 8, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.Zero(t, calls)
}

func TestVerifyPaymentMarksOrderPaid(t *testing.T) {
	var calls int
	ts := gatewayServer(t, &calls)
	defer ts.Close()

	cfg := testGatewayConfig(ts.URL)
	orders := newFakeOrders(unpaidOrder(1, 7))
	svc := NewService(newMemoryIntents(), orders, NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	intent, err := svc.CreateIntent(context.Background(), 7, 1)
	require.NoError(t, err)

	req := &VerifyRequest{
		OrderID:        1,
		GatewayOrderID: intent.GatewayOrderID,
		PaymentID:      "pay_abc",
		Signature:      sign(intent.GatewayOrderID, "pay_abc"),
	}

	ord, err := svc.VerifyPayment(context.Background(), 7, req)
	require.NoError(t, err)
	assert.True(t, ord.IsPaid())
	assert.Equal(t, "pay_abc", ord.PaymentID)
	assert.Equal(t, "razorpay", ord.PaymentMethod)
	require.NotNil(t, ord.PaidAt)

	// Replaying the exact callback stays successful and changes nothing.
	again, err := svc.VerifyPayment(context.Background(), 7, req)
	require.NoError(t, err)
	assert.Equal(t, "pay_abc", again.PaymentID)
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	var calls int
	ts := gatewayServer(t, &calls)
	defer ts.Close()

	cfg := testGatewayConfig(ts.URL)
	orders := newFakeOrders(unpaidOrder(1, 7))
	svc := NewService(newMemoryIntents(), orders, NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	intent, err := svc.CreateIntent(context.Background(), 7, 1)
	require.NoError(t, err)

	_, err = svc.VerifyPayment(context.Background(), 7, &VerifyRequest{
		OrderID:        1,
		GatewayOrderID: intent.GatewayOrderID,
		PaymentID:      "pay_abc",
		Signature:      "deadbeef",
	})
	assert.ErrorIs(t, err, errs.ErrVerificationFailed)

	ord, err := orders.GetOrder(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.False(t, ord.IsPaid(), "order must stay unpaid after a failed verification")
}

func TestVerifyPaymentRejectsUnknownGatewayOrder(t *testing.T) {
	var calls int
	ts := gatewayServer(t, &calls)
	defer ts.Close()

	cfg := testGatewayConfig(ts.URL)
	svc := NewService(newMemoryIntents(), newFakeOrders(unpaidOrder(1, 7)), NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	_, err := svc.VerifyPayment(context.Background(), 7, &VerifyRequest{
		OrderID:        1,
		GatewayOrderID: "order_unknown",
		PaymentID:      "pay_abc",
		Signature:      sign("order_unknown", "pay_abc"),
	})
	assert.ErrorIs(t, err, errs.ErrVerificationFailed)
}

func TestVerifyPaymentRejectsMismatchedIntent(t *testing.T) {
	var calls int
	ts := gatewayServer(t, &calls)
	defer ts.Close()

	cfg := testGatewayConfig(ts.URL)
	intents := newMemoryIntents()
	orders := newFakeOrders(unpaidOrder(1, 7), unpaidOrder(2, 7))
	svc := NewService(intents, orders, NewRazorpayClient(cfg, quietLogger()), cfg, quietLogger())

	// Intent belongs to order 1, but the callback claims order 2: a valid
	// signature for a cheap order must not settle an expensive one.
	require.NoError(t, intents.Create(context.Background(), &Intent{
		OrderID:        1,
		GatewayOrderID: "order_gw123",
		Amount:         12100,
		Currency:       "INR",
	}))

	_, err := svc.VerifyPayment(context.Background(), 7, &VerifyRequest{
		OrderID:        2,
		GatewayOrderID: "order_gw123",
		PaymentID:      "pay_abc",
		Signature:      sign("order_gw123", "pay_abc"),
	})
	assert.ErrorIs(t, err, errs.ErrVerificationFailed)

	ord, err := orders.GetOrder(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.False(t, ord.IsPaid())
}

func TestVerifySignatureConstantTimeHelper(t *testing.T) {
	cfg := testGatewayConfig("http://unused")
	client := NewRazorpayClient(cfg, quietLogger())

	assert.True(t, client.VerifySignature("order_x", "pay_y", sign("order_x", "pay_y")))
	assert.False(t, client.VerifySignature("order_x", "pay_y", sign("order_x", "pay_z")))
	assert.False(t, client.VerifySignature("order_x", "pay_y", ""))
}
