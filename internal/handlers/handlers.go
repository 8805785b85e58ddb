package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/email"
	"storefront/internal/logger"
	"storefront/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, db *sql.DB, cfg *config.Config, emailService *email.Service) {
	r.Use(middleware.LogRequests())
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg))
	r.Use(addDBContext(db))
	r.Use(addConfigContext(cfg))
	r.Use(addEmailServiceContext(emailService))

	api := r.Group("/api")

	api.POST("/auth/register", middleware.AuthRateLimit(cfg), handleRegister)
	api.POST("/auth/login", middleware.AuthRateLimit(cfg), handleLogin)
	api.POST("/auth/logout", middleware.AuthRequired(db), handleLogout)
	api.GET("/auth/me", middleware.AuthOptional(db), handleMe)

	api.GET("/categories", handleListCategories)
	api.GET("/categories/:slug", handleGetCategoryBySlug)
	api.GET("/categories/id/:id", handleGetCategory)
	api.GET("/products", handleListProducts)
	api.GET("/products/:id", handleGetProduct)

	protected := api.Group("/")
	protected.Use(middleware.AuthRequired(db))
	{
		protected.GET("/cart", handleGetCart)
		protected.POST("/cart", handleAddToCart)
		protected.DELETE("/cart", handleClearCart)
		protected.PUT("/cart/:itemId", handleUpdateCartItem)
		protected.DELETE("/cart/:itemId", handleRemoveCartItem)

		protected.POST("/orders", handleCheckout)
		protected.GET("/orders", handleListMyOrders)
		protected.GET("/orders/:id", handleGetMyOrder)

		protected.GET("/account", handleGetAccount)
		protected.PUT("/account", handleUpdateAccount)
	}

	admin := api.Group("/")
	admin.Use(middleware.AuthRequired(db))
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/categories", handleCreateCategory)
		admin.PUT("/categories/id/:id", handleUpdateCategory)
		admin.DELETE("/categories/id/:id", handleDeleteCategory)

		admin.POST("/products", handleCreateProduct)
		admin.PUT("/products/:id", handleUpdateProduct)
		admin.DELETE("/products/:id", handleDeleteProduct)

		admin.GET("/admin/users", handleAdminListUsers)
		admin.GET("/admin/users/:id", handleAdminGetUser)
		admin.PUT("/admin/users/:id", handleAdminUpdateUser)
		admin.GET("/admin/orders", handleAdminListOrders)
		admin.PUT("/admin/orders/:id/status", handleAdminUpdateOrderStatus)
	}
}

func addDBContext(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}

func addConfigContext(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	}
}

func addEmailServiceContext(emailService *email.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("email_service", emailService)
		c.Next()
	}
}

// respondDatabaseError maps the database package's sentinel errors onto HTTP
// statuses. Anything unrecognized is a 500 and gets logged; client mistakes
// do not.
func respondDatabaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, database.ErrInvalidCategoryName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrCategoryNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrDuplicateEmail),
		errors.Is(err, database.ErrDuplicateCategory),
		errors.Is(err, database.ErrCategoryInUse),
		errors.Is(err, database.ErrProductInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled database error",
			"path", c.FullPath(),
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
