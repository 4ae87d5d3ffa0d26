// internal/domain/cart/service_test.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/errs"
	"golang.org/x/sync/errgroup"
)

// memoryRepository implements Repository for tests.
type memoryRepository struct {
	mu    sync.Mutex
	items map[uint]map[uint]*CartItem // userID -> productID -> line
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{items: make(map[uint]map[uint]*CartItem)}
}

func (m *memoryRepository) List(_ context.Context, userID uint) ([]CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []CartItem
	for _, item := range m.items[userID] {
		out = append(out, *item)
	}
	return out, nil
}

func (m *memoryRepository) AddQuantity(_ context.Context, userID, productID uint, quantity int, unitPrice decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items[userID] == nil {
		m.items[userID] = make(map[uint]*CartItem)
	}
	if existing, ok := m.items[userID][productID]; ok {
		existing.Quantity += quantity
		return nil
	}
	m.items[userID][productID] = &CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *memoryRepository) SetQuantity(_ context.Context, userID, productID uint, quantity int) error {
	if quantity <= 0 {
		return m.Remove(context.Background(), userID, productID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[userID][productID]
	if !ok {
		return fmt.Errorf("cart item for product %d: %w", productID, errs.ErrNotFound)
	}
	existing.Quantity = quantity
	return nil
}

func (m *memoryRepository) Remove(_ context.Context, userID, productID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[userID][productID]; !ok {
		return fmt.Errorf("cart item for product %d: %w", productID, errs.ErrNotFound)
	}
	delete(m.items[userID], productID)
	return nil
}

func (m *memoryRepository) Clear(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, userID)
	return nil
}

// staticCatalog implements Catalog for tests.
type staticCatalog struct {
	products map[uint]*product.Product
}

func (s *staticCatalog) GetProduct(id uint) (*product.Product, error) {
	prod, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, errs.ErrNotFound)
	}
	return prod, nil
}

func testCatalog() *staticCatalog {
	return &staticCatalog{products: map[uint]*product.Product{
		1: {ID: 1, SKU: "TSHIRT", Name: "Classic T-Shirt", Price: decimal.NewFromInt(30), IsActive: true, Quantity: 100},
		2: {ID: 2, SKU: "HOODIE", Name: "Zip Hoodie", Price: decimal.NewFromInt(50), IsActive: true, Quantity: 40},
		3: {ID: 3, SKU: "RETIRED", Name: "Retired Item", Price: decimal.NewFromInt(5), IsActive: false, Quantity: 5},
		4: {ID: 4, SKU: "SOLDOUT", Name: "Sold Out Item", Price: decimal.NewFromInt(15), IsActive: true, Quantity: 0},
	}}
}

func testService() *Service {
	cfg := &config.Config{
		Checkout: config.CheckoutConfig{
			TaxRate:               decimal.RequireFromString("0.10"),
			FreeShippingThreshold: decimal.NewFromInt(100),
			ShippingFee:           decimal.NewFromInt(10),
		},
	}
	return NewService(newMemoryRepository(), testCatalog(), pricing.NewEngine(cfg))
}

func TestAddToCartCreatesLine(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	resp, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, uint(1), resp.Items[0].ProductID)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.Equal(t, "Classic T-Shirt", resp.Items[0].ProductName)
	assert.True(t, resp.Items[0].UnitPrice.Equal(decimal.NewFromInt(30)))
	assert.True(t, resp.Items[0].LineTotal.Equal(decimal.NewFromInt(60)))
}

func TestAddToCartIncrementsExistingLine(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
}

func TestAddToCartRejectsBadInput(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 999, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// Inactive products cannot be added.
	_, err = svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 3, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// Out-of-stock products cannot be added either.
	_, err = svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 4, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestUpdateCartItemZeroRemovesLine(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.UpdateCartItem(ctx, 7, 1, &UpdateCartItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Totals.Total.IsZero())
}

func TestUpdateCartItemUnknownLine(t *testing.T) {
	svc := testService()

	_, err := svc.UpdateCartItem(context.Background(), 7, 42, &UpdateCartItemRequest{Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemoveFromCartUnknownLine(t *testing.T) {
	svc := testService()

	_, err := svc.RemoveFromCart(context.Background(), 7, 42)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCartTotalsRecomputedOnEveryMutation(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	// Two t-shirts and a hoodie: 110 subtotal, free shipping, 121 total.
	_, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 2, Quantity: 1})
	require.NoError(t, err)

	assert.True(t, resp.Totals.Subtotal.Equal(decimal.NewFromInt(110)))
	assert.True(t, resp.Totals.Shipping.IsZero())
	assert.True(t, resp.Totals.Total.Equal(decimal.NewFromInt(121)))

	// Dropping the hoodie pushes the cart back under the threshold.
	resp, err = svc.RemoveFromCart(ctx, 7, 2)
	require.NoError(t, err)

	assert.True(t, resp.Totals.Subtotal.Equal(decimal.NewFromInt(60)))
	assert.True(t, resp.Totals.Shipping.Equal(decimal.NewFromInt(10)))
	assert.True(t, resp.Totals.Total.Equal(decimal.NewFromInt(76)))
}

func TestClearCartIsIdempotent(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, 7))
	require.NoError(t, svc.ClearCart(ctx, 7))

	resp, err := svc.GetCart(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestConcurrentSetQuantityEndsInOneState(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	// Race a removal (quantity 0) against an update to 3. Whichever lands
	// second decides the outcome; the loser of the race may see the line
	// already gone, which surfaces as not-found.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := svc.UpdateCartItem(gctx, 7, 1, &UpdateCartItemRequest{Quantity: 0})
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		_, err := svc.UpdateCartItem(gctx, 7, 1, &UpdateCartItemRequest{Quantity: 3})
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return nil
	})
	require.NoError(t, g.Wait())

	resp, err := svc.GetCart(ctx, 7)
	require.NoError(t, err)
	require.LessOrEqual(t, len(resp.Items), 1)
	if len(resp.Items) == 1 {
		assert.Equal(t, uint(1), resp.Items[0].ProductID)
		assert.Equal(t, 3, resp.Items[0].Quantity)
	}
}

func TestConcurrentAddsAccumulate(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := svc.AddToCart(gctx, 7, &AddToCartRequest{ProductID: 1, Quantity: 1})
			return err
		})
	}
	require.NoError(t, g.Wait())

	resp, err := svc.GetCart(ctx, 7)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 20, resp.Items[0].Quantity)
}
