// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SKU         string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ImageURL    string          `gorm:"size:500" json:"image_url"`
	Category    string          `gorm:"size:255;index" json:"category"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	Quantity    int             `gorm:"default:0" json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string { return "products" }

// IsInStock reports whether the product can be added to a cart.
func (p *Product) IsInStock() bool {
	return p.Quantity > 0
}
