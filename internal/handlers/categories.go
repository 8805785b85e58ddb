package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/database"

	"github.com/gin-gonic/gin"
)

func handleListCategories(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	categories, err := database.GetCategories(db)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func handleGetCategoryBySlug(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	category, err := database.GetCategoryBySlug(db, c.Param("slug"))
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

func handleGetCategory(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	categoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	category, err := database.GetCategory(db, categoryID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func handleCreateCategory(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}

	category, err := database.CreateCategory(db, req.Name, req.Description)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func handleUpdateCategory(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	categoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}

	category, err := database.UpdateCategory(db, categoryID, req.Name, req.Description)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

func handleDeleteCategory(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	categoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	if err := database.DeleteCategory(db, categoryID); err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}
