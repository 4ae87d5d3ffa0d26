// internal/domain/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/errs"
	"gorm.io/gorm"
)

// Receipt is the settlement proof recorded when an order is marked paid.
type Receipt struct {
	PaymentID string
	Method    string
	PaidAt    time.Time
}

// Repository abstracts order persistence.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	ListForUser(ctx context.Context, userID uint, page, limit int) ([]Order, int64, error)
	MarkPaid(ctx context.Context, orderID uint, receipt Receipt) error
}

// GormRepository persists orders in Postgres.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates an order repository backed by the given database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create inserts the order and its line snapshots, then assigns the
// human-facing order number derived from the generated ID.
func (r *GormRepository) Create(ctx context.Context, order *Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		order.OrderNumber = order.GenerateOrderNumber()
		if err := tx.Model(order).Update("order_number", order.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to assign order number: %w", err)
		}
		return nil
	})
}

// GetByID loads an order with its items.
func (r *GormRepository) GetByID(ctx context.Context, id uint) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// ListForUser returns the user's orders, newest first, with a total count
// for pagination.
func (r *GormRepository) ListForUser(ctx context.Context, userID uint, page, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64

	query := r.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * limit
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return orders, total, nil
}

// MarkPaid flips an order from unpaid to paid and records the receipt in a
// single conditional update, so two concurrent settlements cannot both win.
// Replaying the same receipt is a no-op; a different receipt against a paid
// order is errs.ErrAlreadyPaid.
func (r *GormRepository) MarkPaid(ctx context.Context, orderID uint, receipt Receipt) error {
	result := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentStatusUnpaid).
		Updates(map[string]interface{}{
			"payment_status": PaymentStatusPaid,
			"payment_id":     receipt.PaymentID,
			"payment_method": receipt.Method,
			"paid_at":        receipt.PaidAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark order paid: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// No row transitioned: the order is missing or already paid.
	existing, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if existing.PaymentID == receipt.PaymentID {
		return nil // same settlement replayed
	}
	return fmt.Errorf("order %d settled by payment %s: %w", orderID, existing.PaymentID, errs.ErrAlreadyPaid)
}
