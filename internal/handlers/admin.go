package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"storefront/internal/database"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

func handleAdminListUsers(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	page, err := database.ListUsers(db, database.ListUsersOptions{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func handleAdminGetUser(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	detail, err := database.GetUserDetail(db, userID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

type adminUpdateUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	IsAdmin *bool   `json:"is_admin"`
}

func handleAdminUpdateUser(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	actingUserID := c.MustGet("user_id").(int)

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req adminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Admins cannot revoke their own admin bit, so there is always at
	// least one admin left.
	if req.IsAdmin != nil && !*req.IsAdmin && userID == actingUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot remove your own admin access"})
		return
	}

	user, err := database.UpdateUser(db, userID, req.Name, req.Email, req.IsAdmin)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func handleAdminListOrders(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	status := c.Query("status")
	if status != "" && !models.IsValidOrderStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	page, err := database.ListOrders(db, database.ListOrdersOptions{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
		Status:   status,
	})
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

func handleAdminUpdateOrderStatus(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !models.IsValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	order, err := database.UpdateOrderStatus(db, orderID, req.Status)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
