// internal/domain/cart/service.go
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/errs"
)

// Catalog resolves products when lines are added. Satisfied by
// product.Service.
type Catalog interface {
	GetProduct(id uint) (*product.Product, error)
}

// Service handles cart business logic
type Service struct {
	repo    Repository
	catalog Catalog
	pricer  *pricing.Engine
}

// NewService creates a new cart service
func NewService(repo Repository, catalog Catalog, pricer *pricing.Engine) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		pricer:  pricer,
	}
}

// CartItemResponse represents a cart line with its extended price
type CartItemResponse struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	AddedAt     time.Time       `json:"added_at"`
}

// CartResponse represents a cart with items and the full pricing breakdown.
// Every mutation returns one, recomputed, so the client never sees totals
// that disagree with the lines.
type CartResponse struct {
	UserID uint               `json:"user_id"`
	Items  []CartItemResponse `json:"items"`
	Totals pricing.Totals     `json:"totals"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// GetCart retrieves the user's cart with recomputed totals
func (s *Service) GetCart(ctx context.Context, userID uint) (*CartResponse, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(userID, items), nil
}

// AddToCart adds a product to the cart or increments its quantity. The unit
// price is captured from the catalog on first add.
func (s *Service) AddToCart(ctx context.Context, userID uint, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", errs.ErrInvalidArgument)
	}

	prod, err := s.catalog.GetProduct(req.ProductID)
	if err != nil {
		return nil, err
	}
	if !prod.IsActive {
		return nil, fmt.Errorf("product %d is not available: %w", req.ProductID, errs.ErrNotFound)
	}
	if !prod.IsInStock() {
		return nil, fmt.Errorf("product %d is out of stock: %w", req.ProductID, errs.ErrInvalidArgument)
	}

	if err := s.repo.AddQuantity(ctx, userID, req.ProductID, req.Quantity, prod.Price); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateCartItem sets the quantity of an existing line. Zero removes the
// line; an unknown line is errs.ErrNotFound.
func (s *Service) UpdateCartItem(ctx context.Context, userID, productID uint, req *UpdateCartItemRequest) (*CartResponse, error) {
	if req.Quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative: %w", errs.ErrInvalidArgument)
	}

	if err := s.repo.SetQuantity(ctx, userID, productID, req.Quantity); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// RemoveFromCart removes a line from the cart
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID uint) (*CartResponse, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// ClearCart removes every line from the cart
func (s *Service) ClearCart(ctx context.Context, userID uint) error {
	return s.repo.Clear(ctx, userID)
}

// Items returns the raw cart lines, used at checkout to snapshot the cart
// into an order.
func (s *Service) Items(ctx context.Context, userID uint) ([]CartItem, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) buildResponse(userID uint, items []CartItem) *CartResponse {
	responses := make([]CartItemResponse, len(items))
	lines := make([]pricing.Line, len(items))

	for i, item := range items {
		responses[i] = CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
			AddedAt:   item.CreatedAt,
		}
		if prod, err := s.catalog.GetProduct(item.ProductID); err == nil {
			responses[i].ProductName = prod.Name
		}
		lines[i] = pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}

	return &CartResponse{
		UserID: userID,
		Items:  responses,
		Totals: s.pricer.PriceLines(lines),
	}
}
