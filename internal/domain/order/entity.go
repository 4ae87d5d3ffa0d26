// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus represents the settlement state of an order
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// Order represents the order entity. Amounts and line prices are snapshots
// taken at checkout; later catalog price changes never touch placed orders.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'unpaid';size:20" json:"payment_status"`

	// Financial information
	SubtotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	ShippingAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency       string          `gorm:"size:3;default:'INR'" json:"currency"`

	// Shipping address snapshot
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// Settlement receipt, populated when the order is marked paid
	PaymentID     string     `gorm:"size:255" json:"payment_id,omitempty"`
	PaymentMethod string     `gorm:"size:50" json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem represents a line snapshot in an order
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	SKU       string          `gorm:"size:100" json:"sku"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Address represents the shipping address embedded in an order
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// GenerateOrderNumber formats the human-facing order reference.
// Format: ORD-YYYYMMDD-XXXXX
func (o *Order) GenerateOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%05d", time.Now().UTC().Format("20060102"), o.ID)
}

// IsPaid reports whether settlement has completed for this order.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}
