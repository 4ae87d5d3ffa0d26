// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{db: db}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Dependency order: orders and intents reference products and users.
	models := []interface{}{
		&user.User{},
		&product.Product{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
		&payment.Intent{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user ON cart_items(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_payment_intents_gateway_order ON payment_intents(gateway_order_id)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// SeedDevData inserts a small catalog for development environments. It is a
// no-op when products already exist.
func (m *Migration) SeedDevData() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	products := []product.Product{
		{
			SKU:         "TSHIRT-CLASSIC",
			Name:        "Classic T-Shirt",
			Slug:        "classic-t-shirt",
			Description: "Plain cotton t-shirt",
			Price:       decimal.NewFromInt(30),
			Category:    "apparel",
			IsActive:    true,
			Quantity:    100,
		},
		{
			SKU:         "HOODIE-ZIP",
			Name:        "Zip Hoodie",
			Slug:        "zip-hoodie",
			Description: "Fleece-lined zip hoodie",
			Price:       decimal.NewFromInt(50),
			Category:    "apparel",
			IsActive:    true,
			Quantity:    50,
		},
		{
			SKU:         "STICKER-PACK",
			Name:        "Sticker Pack",
			Slug:        "sticker-pack",
			Description: "Assorted vinyl stickers",
			Price:       decimal.NewFromInt(10),
			Category:    "accessories",
			IsActive:    true,
			Quantity:    500,
		},
	}

	if err := m.db.Create(&products).Error; err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	log.Printf("Seeded %d products", len(products))
	return nil
}
