package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"storefront/internal/database"

	"github.com/gin-gonic/gin"
)

func handleGetAccount(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	userID := c.MustGet("user_id").(int)

	user, err := database.GetUserByID(db, userID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	orders, err := database.GetOrdersForUser(db, userID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"orders": orders,
	})
}

type updateAccountRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	CurrentPassword string  `json:"current_password"`
}

func handleUpdateAccount(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	userID := c.MustGet("user_id").(int)

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Email != nil && !emailRegex.MatchString(strings.TrimSpace(*req.Email)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address"})
		return
	}

	// Changing the password requires proving the current one.
	if req.Password != nil {
		if len(*req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
			return
		}
		if err := database.VerifyPassword(db, userID, req.CurrentPassword); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Current password is incorrect"})
			return
		}
	}

	user, err := database.UpdateAccount(db, userID, req.Name, req.Email, req.Password)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
