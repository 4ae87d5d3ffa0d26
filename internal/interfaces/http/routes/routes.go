// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// Services bundles the domain services the HTTP layer exposes.
type Services struct {
	User    *user.Service
	Product *product.Service
	Cart    *cart.Service
	Order   *order.Service
	Payment *payment.Service
}

// SetupRoutes wires all API routes onto the given group.
func SetupRoutes(rg *gin.RouterGroup, svcs *Services, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(svcs.User)
	productHandler := handlers.NewProductHandler(svcs.Product)
	cartHandler := handlers.NewCartHandler(svcs.Cart)
	orderHandler := handlers.NewOrderHandler(svcs.Order)
	paymentHandler := handlers.NewPaymentHandler(svcs.Payment)

	// Public auth endpoints
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.POST("/change-password", authHandler.ChangePassword)
		}
	}

	// Public catalog
	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
	}

	// Cart requires authentication
	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.AuthMiddleware(cfg))
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.DELETE("", cartHandler.ClearCart)
		cartGroup.POST("/items", cartHandler.AddToCart)
		cartGroup.PUT("/items/:productId", cartHandler.UpdateCartItem)
		cartGroup.DELETE("/items/:productId", cartHandler.RemoveFromCart)
	}

	// Orders require authentication
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.ListOrders)
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("/:id", orderHandler.GetOrder)
	}

	// Payments require authentication
	payments := rg.Group("/payments")
	payments.Use(middleware.AuthMiddleware(cfg))
	{
		payments.POST("/intent", paymentHandler.CreateIntent)
		payments.POST("/verify", paymentHandler.VerifyPayment)
	}

	// Admin product management
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/products", productHandler.CreateProduct)
	}
}
