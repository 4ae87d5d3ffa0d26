// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/pkg/errs"
	"github.com/sirupsen/logrus"
)

// Orders is the slice of order operations settlement needs. Satisfied by
// order.Service.
type Orders interface {
	GetOrder(ctx context.Context, userID, orderID uint) (*order.Order, error)
	MarkPaid(ctx context.Context, orderID uint, receipt order.Receipt) error
}

// Gateway is the gateway surface the service uses. Satisfied by
// RazorpayClient.
type Gateway interface {
	CreateOrder(ctx context.Context, req *GatewayOrderRequest) (*GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// Service handles payment intent creation and settlement verification
type Service struct {
	intents Repository
	orders  Orders
	gateway Gateway
	config  *config.Config
	logger  *logrus.Logger
}

// NewService creates a new payment service
func NewService(intents Repository, orders Orders, gateway Gateway, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		intents: intents,
		orders:  orders,
		gateway: gateway,
		config:  cfg,
		logger:  logger,
	}
}

// IntentResponse is everything the client needs to open the gateway's
// checkout: the gateway order, the amount it will charge, and the
// publishable key. The key secret never appears here.
type IntentResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"` // minor units
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	KeyID          string `json:"key_id"`
}

// VerifyRequest is the settlement callback relayed by the client after the
// gateway checkout completes.
type VerifyRequest struct {
	OrderID        uint   `json:"order_id" binding:"required"`
	GatewayOrderID string `json:"razorpay_order_id" binding:"required"`
	PaymentID      string `json:"razorpay_payment_id" binding:"required"`
	Signature      string `json:"razorpay_signature" binding:"required"`
}

// CreateIntent creates a gateway order for an unpaid order and records the
// correlation. Calling it again for the same order returns the existing
// intent instead of opening a second gateway order.
func (s *Service) CreateIntent(ctx context.Context, userID, orderID uint) (*IntentResponse, error) {
	if !s.config.External.Razorpay.Configured() {
		return nil, fmt.Errorf("payment gateway is not configured: %w", errs.ErrUnavailable)
	}

	ord, err := s.orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if ord.IsPaid() {
		return nil, fmt.Errorf("order %d: %w", orderID, errs.ErrAlreadyPaid)
	}

	if existing, err := s.intents.GetByOrderID(ctx, orderID); err == nil {
		return s.intentResponse(existing, ord), nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	amount := pricing.ToMinorUnits(ord.TotalAmount)

	gatewayOrder, err := s.gateway.CreateOrder(ctx, &GatewayOrderRequest{
		Amount:   amount,
		Currency: ord.Currency,
		Receipt:  ord.OrderNumber,
		Notes: map[string]string{
			"order_id": fmt.Sprintf("%d", orderID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", errors.Join(errs.ErrUnavailable, err))
	}

	intent := &Intent{
		OrderID:        orderID,
		GatewayOrderID: gatewayOrder.ID,
		Amount:         amount,
		Currency:       ord.Currency,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":         orderID,
		"gateway_order_id": gatewayOrder.ID,
		"amount":           amount,
	}).Info("Payment intent created")

	return s.intentResponse(intent, ord), nil
}

// VerifyPayment checks a settlement callback and, when it is genuine, marks
// the order paid. The callback must reference a gateway order this service
// created, for the order it was created for, with a valid signature. Any
// mismatch is errs.ErrVerificationFailed and the order stays unpaid.
func (s *Service) VerifyPayment(ctx context.Context, userID uint, req *VerifyRequest) (*order.Order, error) {
	if !s.config.External.Razorpay.Configured() {
		return nil, fmt.Errorf("payment gateway is not configured: %w", errs.ErrUnavailable)
	}

	_, err := s.orders.GetOrder(ctx, userID, req.OrderID)
	if err != nil {
		return nil, err
	}

	intent, err := s.intents.GetByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("unknown gateway order %s: %w", req.GatewayOrderID, errs.ErrVerificationFailed)
		}
		return nil, err
	}
	if intent.OrderID != req.OrderID {
		s.logger.WithFields(logrus.Fields{
			"order_id":         req.OrderID,
			"gateway_order_id": req.GatewayOrderID,
			"intent_order_id":  intent.OrderID,
		}).Warn("Settlement callback references a different order's intent")
		return nil, fmt.Errorf("gateway order %s does not belong to order %d: %w",
			req.GatewayOrderID, req.OrderID, errs.ErrVerificationFailed)
	}

	if !s.gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature) {
		s.logger.WithFields(logrus.Fields{
			"order_id":   req.OrderID,
			"payment_id": req.PaymentID,
		}).Warn("Settlement callback signature mismatch")
		return nil, fmt.Errorf("invalid settlement signature: %w", errs.ErrVerificationFailed)
	}

	receipt := order.Receipt{
		PaymentID: req.PaymentID,
		Method:    "razorpay",
		PaidAt:    time.Now().UTC(),
	}
	if err := s.orders.MarkPaid(ctx, req.OrderID, receipt); err != nil {
		return nil, err
	}

	return s.orders.GetOrder(ctx, userID, req.OrderID)
}

func (s *Service) intentResponse(intent *Intent, ord *order.Order) *IntentResponse {
	return &IntentResponse{
		GatewayOrderID: intent.GatewayOrderID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		Receipt:        ord.OrderNumber,
		KeyID:          s.config.External.Razorpay.KeyID,
	}
}
