// internal/domain/order/service.go
package order

import (
	"context"
	"fmt"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/errs"
	"github.com/sirupsen/logrus"
)

// CartSource supplies the lines to snapshot at checkout. Satisfied by
// cart.Service.
type CartSource interface {
	Items(ctx context.Context, userID uint) ([]cart.CartItem, error)
	ClearCart(ctx context.Context, userID uint) error
}

// Catalog resolves product details for line snapshots. Satisfied by
// product.Service.
type Catalog interface {
	GetProduct(id uint) (*product.Product, error)
}

// Service handles order business logic
type Service struct {
	repo    Repository
	carts   CartSource
	catalog Catalog
	pricer  *pricing.Engine
	config  *config.Config
	logger  *logrus.Logger
}

// NewService creates a new order service
func NewService(repo Repository, carts CartSource, catalog Catalog, pricer *pricing.Engine, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		repo:    repo,
		carts:   carts,
		catalog: catalog,
		pricer:  pricer,
		config:  cfg,
		logger:  logger,
	}
}

// CreateOrderRequest represents checkout data
type CreateOrderRequest struct {
	ShippingAddress Address `json:"shipping_address" binding:"required"`
}

// OrderListResponse represents a page of orders
type OrderListResponse struct {
	Orders     []Order `json:"orders"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int64   `json:"total"`
	TotalPages int     `json:"total_pages"`
}

// CreateOrder converts the user's cart into an order. Totals are computed
// server-side from the stored cart lines; nothing from the client is
// trusted except the shipping address. An empty cart cannot check out.
func (s *Service) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("cart is empty: %w", errs.ErrInvalidArgument)
	}

	lines := make([]pricing.Line, len(items))
	orderItems := make([]OrderItem, len(items))
	for i, item := range items {
		lines[i] = pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity}

		orderItems[i] = OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		}
		if prod, err := s.catalog.GetProduct(item.ProductID); err == nil {
			orderItems[i].SKU = prod.SKU
			orderItems[i].Name = prod.Name
		}
	}

	totals := s.pricer.PriceLines(lines)

	order := &Order{
		UserID:          userID,
		PaymentStatus:   PaymentStatusUnpaid,
		SubtotalAmount:  totals.Subtotal,
		TaxAmount:       totals.Tax,
		ShippingAmount:  totals.Shipping,
		TotalAmount:     totals.Total,
		Currency:        s.config.Checkout.Currency,
		ShippingAddress: req.ShippingAddress,
		Items:           orderItems,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	if s.config.Checkout.ClearCartAfterCheckout {
		if err := s.carts.ClearCart(ctx, userID); err != nil {
			// The order exists; a stale cart is recoverable.
			s.logger.WithError(err).WithField("order_id", order.ID).
				Warn("Failed to clear cart after checkout")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"total":        order.TotalAmount.String(),
	}).Info("Order created")

	return order, nil
}

// GetOrder loads an order for its owner. Another user's order looks like it
// does not exist.
func (s *Service) GetOrder(ctx context.Context, userID, orderID uint) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, errs.ErrNotFound)
	}
	return order, nil
}

// ListOrders returns the user's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, userID uint, page, limit int) (*OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	orders, total, err := s.repo.ListForUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &OrderListResponse{
		Orders:     orders,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// MarkPaid records a settlement receipt against an order. Used by the
// payment verifier after the gateway signature checks out.
func (s *Service) MarkPaid(ctx context.Context, orderID uint, receipt Receipt) error {
	if err := s.repo.MarkPaid(ctx, orderID, receipt); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"payment_id": receipt.PaymentID,
		"method":     receipt.Method,
	}).Info("Order marked paid")
	return nil
}
