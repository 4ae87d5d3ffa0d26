// internal/domain/payment/razorpay.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

// RazorpayClient talks to the Razorpay REST API. Credentials come from
// configuration; the base URL is configurable so tests can point the client
// at a local server.
type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewRazorpayClient creates a gateway client from configuration.
func NewRazorpayClient(cfg *config.Config, logger *logrus.Logger) *RazorpayClient {
	rz := cfg.External.Razorpay
	return &RazorpayClient{
		keyID:     rz.KeyID,
		keySecret: rz.KeySecret,
		baseURL:   rz.BaseURL,
		httpClient: &http.Client{
			Timeout: rz.Timeout,
		},
		logger: logger,
	}
}

// GatewayOrderRequest is the payload for creating a gateway order.
// Amount is in minor units.
type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway's view of a created order.
type GatewayOrder struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

// CreateOrder creates an order on the gateway.
func (c *RazorpayClient) CreateOrder(ctx context.Context, req *GatewayOrderRequest) (*GatewayOrder, error) {
	body, err := c.call(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}

	var gatewayOrder GatewayOrder
	if err := json.Unmarshal(body, &gatewayOrder); err != nil {
		return nil, fmt.Errorf("failed to parse gateway order response: %w", err)
	}
	return &gatewayOrder, nil
}

// VerifySignature checks a settlement callback signature. Razorpay signs
// "<gateway order id>|<payment id>" with HMAC-SHA256 under the key secret
// and sends the hex digest. Comparison is constant-time.
func (c *RazorpayClient) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *RazorpayClient) call(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	var reqBody []byte
	if data != nil {
		var err error
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// The upstream body stays in the server log; callers only see the
		// status so gateway internals never reach clients.
		c.logger.WithFields(logrus.Fields{
			"method":   method,
			"endpoint": endpoint,
			"status":   resp.StatusCode,
			"body":     string(respBody),
		}).Warn("Gateway request failed")
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return respBody, nil
}
