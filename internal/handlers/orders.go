package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"storefront/internal/database"
	emailService "storefront/internal/email"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	ShippingAddress models.Address `json:"shipping_address"`
	BillingAddress  models.Address `json:"billing_address"`
	PaymentIntentID *string        `json:"payment_intent_id"`
}

func handleCheckout(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	userID := c.MustGet("user_id").(int)
	user := c.MustGet("user").(*models.User)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.ShippingAddress.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shipping address is required"})
		return
	}

	order, err := database.PlaceOrder(c.Request.Context(), db, userID, database.PlaceOrderRequest{
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	logger.Info("Order placed",
		"user_id", userID,
		"order_number", order.OrderNumber,
		"total", order.TotalAmount.StringFixed(2))

	emailSvc, _ := c.Get("email_service")
	if service, ok := emailSvc.(*emailService.Service); ok && service.IsEnabled() {
		if err := service.SendOrderConfirmationEmail(user, order); err != nil {
			logger.Warn("Failed to send order confirmation",
				"email", user.Email,
				"order_number", order.OrderNumber,
				"error", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func handleListMyOrders(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	userID := c.MustGet("user_id").(int)

	orders, err := database.GetOrdersForUser(db, userID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func handleGetMyOrder(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	user := c.MustGet("user").(*models.User)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := database.GetOrder(db, orderID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	// Owner or admin; everyone else sees a 404 rather than a 403 so order
	// IDs are not probeable.
	if order.UserID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusNotFound, gin.H{"error": database.ErrOrderNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
