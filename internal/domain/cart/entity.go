// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem represents a line in a user's cart. A user holds at most one
// line per product; adding the same product again increments the quantity.
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides the table name for CartItem
func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal returns the extended price for this line.
func (c *CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
