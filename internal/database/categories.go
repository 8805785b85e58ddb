package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"storefront/internal/models"
)

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a category name: lower-cased, runs of
// non-alphanumeric characters collapsed into single hyphens.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func CreateCategory(db *sql.DB, name string, description *string) (*models.Category, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrInvalidCategoryName
	}

	query := `
		INSERT INTO categories (name, slug, description)
		VALUES (?, ?, ?)
	`

	result, err := db.Exec(query, name, slug, description)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicateCategory
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	return GetCategory(db, int(id))
}

func GetCategories(db *sql.DB) ([]models.Category, error) {
	query := `
		SELECT id, name, slug, description, created_at, updated_at
		FROM categories
		ORDER BY name
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Slug,
			&category.Description,
			&category.CreatedAt,
			&category.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func GetCategory(db *sql.DB, categoryID int) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, name, slug, description, created_at, updated_at
		FROM categories
		WHERE id = ?
	`

	err := db.QueryRow(query, categoryID).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return category, nil
}

// GetCategoryBySlug returns the category with its products, newest first.
func GetCategoryBySlug(db *sql.DB, slug string) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, name, slug, description, created_at, updated_at
		FROM categories
		WHERE slug = ?
	`

	err := db.QueryRow(query, slug).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	productsQuery := `
		SELECT id, name, description, price, image_url, stock_quantity, category_id, created_at, updated_at
		FROM products
		WHERE category_id = ?
		ORDER BY created_at DESC
	`

	rows, err := db.Query(productsQuery, category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.StockQuantity,
			&product.CategoryID,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		category.Products = append(category.Products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category products: %w", err)
	}

	return category, nil
}

func UpdateCategory(db *sql.DB, categoryID int, name string, description *string) (*models.Category, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrInvalidCategoryName
	}

	query := `
		UPDATE categories
		SET name = ?, slug = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := db.Exec(query, name, slug, description, categoryID)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicateCategory
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrCategoryNotFound
	}

	return GetCategory(db, categoryID)
}

// DeleteCategory refuses to delete a category that still owns products.
func DeleteCategory(db *sql.DB, categoryID int) error {
	var productCount int
	countQuery := `SELECT COUNT(*) FROM products WHERE category_id = ?`
	err := db.QueryRow(countQuery, categoryID).Scan(&productCount)
	if err != nil {
		return fmt.Errorf("failed to check products in category: %w", err)
	}

	if productCount > 0 {
		return ErrCategoryInUse
	}

	query := `DELETE FROM categories WHERE id = ?`

	result, err := db.Exec(query, categoryID)
	if err != nil {
		if IsForeignKeyConstraintError(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}
