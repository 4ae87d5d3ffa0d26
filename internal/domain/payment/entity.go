// internal/domain/payment/entity.go
package payment

import "time"

// Intent records the correlation between a local order and the gateway
// order created for it. Settlement callbacks are only honored when they
// reference a gateway order this table knows about, against the order it
// was created for.
type Intent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	GatewayOrderID string    `gorm:"not null;uniqueIndex;size:255" json:"gateway_order_id"`
	Amount         int64     `gorm:"not null" json:"amount"` // minor units (paise)
	Currency       string    `gorm:"size:3;not null" json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName overrides the table name for Intent
func (Intent) TableName() string {
	return "payment_intents"
}
