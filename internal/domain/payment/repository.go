// internal/domain/payment/repository.go
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/storefront-backend/internal/pkg/errs"
	"gorm.io/gorm"
)

// Repository abstracts intent persistence.
type Repository interface {
	Create(ctx context.Context, intent *Intent) error
	GetByOrderID(ctx context.Context, orderID uint) (*Intent, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Intent, error)
}

// GormRepository persists payment intents in Postgres.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates an intent repository backed by the given database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, intent *Intent) error {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

func (r *GormRepository) GetByOrderID(ctx context.Context, orderID uint) (*Intent, error) {
	var intent Intent
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("intent for order %d: %w", orderID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	return &intent, nil
}

func (r *GormRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Intent, error) {
	var intent Intent
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("intent for gateway order %s: %w", gatewayOrderID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	return &intent, nil
}
