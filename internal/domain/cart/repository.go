// internal/domain/cart/repository.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/pkg/errs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository abstracts cart persistence so the service can be exercised
// against an in-memory implementation in tests.
type Repository interface {
	List(ctx context.Context, userID uint) ([]CartItem, error)
	AddQuantity(ctx context.Context, userID, productID uint, quantity int, unitPrice decimal.Decimal) error
	SetQuantity(ctx context.Context, userID, productID uint, quantity int) error
	Remove(ctx context.Context, userID, productID uint) error
	Clear(ctx context.Context, userID uint) error
}

// GormRepository persists cart lines in Postgres.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a cart repository backed by the given database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// List returns the user's cart lines ordered by insertion.
func (r *GormRepository) List(ctx context.Context, userID uint) ([]CartItem, error) {
	var items []CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return items, nil
}

// AddQuantity inserts a new line or increments an existing one. The unit
// price stored at first add wins; later adds of the same product do not
// overwrite it, so the line keeps the price the customer saw.
func (r *GormRepository) AddQuantity(ctx context.Context, userID, productID uint, quantity int, unitPrice decimal.Decimal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing CartItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			item := CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: unitPrice,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up cart item: %w", err)
		}

		return tx.Model(&existing).
			Update("quantity", gorm.Expr("quantity + ?", quantity)).Error
	})
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero
// or less removes the line. Unknown lines return errs.ErrNotFound.
func (r *GormRepository) SetQuantity(ctx context.Context, userID, productID uint, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, userID, productID)
	}

	result := r.db.WithContext(ctx).Model(&CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", quantity)
	if result.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cart item for product %d: %w", productID, errs.ErrNotFound)
	}
	return nil
}

// Remove deletes a line from the cart. Unknown lines return errs.ErrNotFound.
func (r *GormRepository) Remove(ctx context.Context, userID, productID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cart item for product %d: %w", productID, errs.ErrNotFound)
	}
	return nil
}

// Clear removes every line from the user's cart. Clearing an already empty
// cart is not an error.
func (r *GormRepository) Clear(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
