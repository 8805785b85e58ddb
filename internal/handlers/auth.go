package handlers

import (
	"database/sql"
	"net/http"
	"regexp"
	"strings"

	"storefront/internal/config"
	"storefront/internal/database"
	emailService "storefront/internal/email"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type registerRequest struct {
	Email    string  `json:"email"`
	Name     *string `json:"name"`
	Password string  `json:"password"`
}

func handleRegister(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	cfg := c.MustGet("config").(*config.Config)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if !emailRegex.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
		return
	}

	user, err := database.CreateUser(db, req.Email, req.Name, req.Password)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	emailSvc, _ := c.Get("email_service")
	if service, ok := emailSvc.(*emailService.Service); ok && service.IsEnabled() {
		if err := service.SendWelcomeEmail(user); err != nil {
			logger.Warn("Failed to send welcome email",
				"email", user.Email,
				"user_id", user.ID,
				"error", err)
		}
	}

	session, err := database.CreateSession(db, user.ID, cfg.SessionDuration)
	if err != nil {
		logger.Error("Failed to create session after registration",
			"user_id", user.ID,
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setSessionCookie(c, cfg, session.ID)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleLogin(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	cfg := c.MustGet("config").(*config.Config)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := database.AuthenticateUser(db, req.Email, req.Password)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	session, err := database.CreateSession(db, user.ID, cfg.SessionDuration)
	if err != nil {
		logger.Error("Failed to create session",
			"user_id", user.ID,
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setSessionCookie(c, cfg, session.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func handleLogout(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	cfg := c.MustGet("config").(*config.Config)

	if sessionID, err := c.Cookie("session_id"); err == nil {
		if err := database.DeleteSession(db, sessionID); err != nil {
			logger.Warn("Failed to delete session on logout", "error", err)
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("session_id", "", -1, "/", "", !cfg.IsDevelopment(), true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// handleMe reports the current user, or a null user for anonymous callers.
func handleMe(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.(*models.User)})
}

func setSessionCookie(c *gin.Context, cfg *config.Config, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("session_id", sessionID, int(cfg.SessionDuration.Seconds()), "/", "", !cfg.IsDevelopment(), true)
}
