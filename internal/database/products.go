package database

import (
	"database/sql"
	"fmt"
	"math"

	"storefront/internal/models"
)

type ListProductsOptions struct {
	Page         int
	PageSize     int
	CategorySlug string
	Search       string
	SortBy       string
	SortOrder    string
}

type ProductPage struct {
	Products      []models.Product `json:"products"`
	CurrentPage   int              `json:"currentPage"`
	TotalPages    int              `json:"totalPages"`
	TotalProducts int              `json:"totalProducts"`
}

// sortColumns whitelists user-supplied sort keys.
var sortColumns = map[string]string{
	"name":           "p.name",
	"price":          "CAST(p.price AS REAL)",
	"createdAt":      "p.created_at",
	"stock_quantity": "p.stock_quantity",
}

func CreateProduct(db *sql.DB, product models.Product) (*models.Product, error) {
	if _, err := GetCategory(db, product.CategoryID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO products (name, description, price, image_url, stock_quantity, category_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, product.Name, product.Description, product.Price,
		product.ImageURL, product.StockQuantity, product.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get product ID: %w", err)
	}

	return GetProduct(db, int(id))
}

func GetProduct(db *sql.DB, productID int) (*models.Product, error) {
	product := &models.Product{}
	category := &models.Category{}

	query := `
		SELECT p.id, p.name, p.description, p.price, p.image_url, p.stock_quantity,
		       p.category_id, p.created_at, p.updated_at,
		       c.id, c.name, c.slug
		FROM products p
		INNER JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?
	`

	err := db.QueryRow(query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.StockQuantity,
		&product.CategoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&category.ID,
		&category.Name,
		&category.Slug,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	product.Category = category
	return product, nil
}

func ListProducts(db *sql.DB, opts ListProductsOptions) (*ProductPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 10
	}

	where := "1=1"
	var args []interface{}

	if opts.CategorySlug != "" {
		where += " AND c.slug = ?"
		args = append(args, opts.CategorySlug)
	}
	if opts.Search != "" {
		where += " AND (p.name LIKE ? OR p.description LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM products p
		INNER JOIN categories c ON p.category_id = c.id
		WHERE ` + where
	if err := db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	orderColumn, ok := sortColumns[opts.SortBy]
	if !ok {
		orderColumn = "p.created_at"
	}
	direction := "DESC"
	if opts.SortOrder == "asc" {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.description, p.price, p.image_url, p.stock_quantity,
		       p.category_id, p.created_at, p.updated_at,
		       c.id, c.name, c.slug
		FROM products p
		INNER JOIN categories c ON p.category_id = c.id
		WHERE %s
		ORDER BY %s %s
		LIMIT ? OFFSET ?`, where, orderColumn, direction)

	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		var category models.Category
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
			&category.ID,
			&category.Name,
			&category.Slug,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		product.Category = &category
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return &ProductPage{
		Products:      products,
		CurrentPage:   opts.Page,
		TotalPages:    int(math.Ceil(float64(total) / float64(opts.PageSize))),
		TotalProducts: total,
	}, nil
}

func UpdateProduct(db *sql.DB, productID int, product models.Product) (*models.Product, error) {
	if _, err := GetCategory(db, product.CategoryID); err != nil {
		return nil, err
	}

	query := `
		UPDATE products
		SET name = ?, description = ?, price = ?, image_url = ?, stock_quantity = ?,
		    category_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := db.Exec(query, product.Name, product.Description, product.Price,
		product.ImageURL, product.StockQuantity, product.CategoryID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrProductNotFound
	}

	return GetProduct(db, productID)
}

// DeleteProduct removes a product along with any cart references to it, but
// refuses when the product appears on an existing order.
func DeleteProduct(db *sql.DB, productID int) error {
	var orderItemCount int
	countQuery := `SELECT COUNT(*) FROM order_items WHERE product_id = ?`
	err := db.QueryRow(countQuery, productID).Scan(&orderItemCount)
	if err != nil {
		return fmt.Errorf("failed to check product order references: %w", err)
	}

	if orderItemCount > 0 {
		return ErrProductInUse
	}

	if _, err := db.Exec(`DELETE FROM cart_items WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("failed to remove product from carts: %w", err)
	}

	result, err := db.Exec(`DELETE FROM products WHERE id = ?`, productID)
	if err != nil {
		if IsForeignKeyConstraintError(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// DecrementStock is the guarded write protecting the non-negative stock
// invariant: the row is only touched while enough stock remains.
func DecrementStock(tx *sql.Tx, productID, quantity int) error {
	result, err := tx.Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity - ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		  AND stock_quantity >= ?`,
		quantity, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}
