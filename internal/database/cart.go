package database

import (
	"database/sql"
	"fmt"

	"storefront/internal/models"
)

// GetCartItems returns the user's cart lines with a current product snapshot
// (price, stock, name) attached to each, oldest first.
func GetCartItems(db *sql.DB, userID int) ([]models.CartItem, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.added_at,
		       p.id, p.name, p.description, p.price, p.image_url, p.stock_quantity, p.category_id
		FROM cart_items ci
		INNER JOIN products p ON ci.product_id = p.id
		WHERE ci.user_id = ?
		ORDER BY ci.added_at
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		var product models.Product
		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.StockQuantity,
			&product.CategoryID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.Product = &product
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// AddToCart adds quantity of a product to the user's cart, merging with an
// existing line for the same product. The stock check here is advisory early
// feedback; the authoritative check happens inside PlaceOrder.
func AddToCart(db *sql.DB, userID, productID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	product, err := GetProduct(db, productID)
	if err != nil {
		return nil, err
	}

	var existingID, existingQuantity int
	err = db.QueryRow(
		`SELECT id, quantity FROM cart_items WHERE user_id = ? AND product_id = ?`,
		userID, productID).Scan(&existingID, &existingQuantity)

	switch {
	case err == sql.ErrNoRows:
		if product.StockQuantity < quantity {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.StockQuantity,
				Requested:   quantity,
			}
		}

		result, err := db.Exec(
			`INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)`,
			userID, productID, quantity)
		if err != nil {
			// A concurrent add for the same product won the insert; merge
			// into its line instead.
			if IsUniqueConstraintError(err) {
				return mergeIntoExistingLine(db, userID, product, quantity)
			}
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get cart item ID: %w", err)
		}
		return getCartItem(db, userID, int(id))

	case err != nil:
		return nil, fmt.Errorf("failed to query cart item: %w", err)

	default:
		return mergeIntoExistingLine(db, userID, product, quantity)
	}
}

func mergeIntoExistingLine(db *sql.DB, userID int, product *models.Product, quantity int) (*models.CartItem, error) {
	var existingID, existingQuantity int
	err := db.QueryRow(
		`SELECT id, quantity FROM cart_items WHERE user_id = ? AND product_id = ?`,
		userID, product.ID).Scan(&existingID, &existingQuantity)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}

	newQuantity := existingQuantity + quantity
	if product.StockQuantity < newQuantity {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.StockQuantity,
			Requested:   newQuantity,
		}
	}

	// Guarded against a concurrent merge bumping the same line.
	_, err = db.Exec(`UPDATE cart_items SET quantity = quantity + ? WHERE id = ?`, quantity, existingID)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return getCartItem(db, userID, existingID)
}

func UpdateCartItemQuantity(db *sql.DB, userID, cartItemID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	item, err := getCartItem(db, userID, cartItemID)
	if err != nil {
		return nil, err
	}

	if item.Product.StockQuantity < quantity {
		return nil, &InsufficientStockError{
			ProductID:   item.Product.ID,
			ProductName: item.Product.Name,
			Available:   item.Product.StockQuantity,
			Requested:   quantity,
		}
	}

	_, err = db.Exec(`UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`,
		quantity, cartItemID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item quantity: %w", err)
	}

	return getCartItem(db, userID, cartItemID)
}

func RemoveCartItem(db *sql.DB, userID, cartItemID int) error {
	result, err := db.Exec(`DELETE FROM cart_items WHERE id = ? AND user_id = ?`,
		cartItemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func ClearCart(db *sql.DB, userID int) error {
	_, err := db.Exec(`DELETE FROM cart_items WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func getCartItem(db *sql.DB, userID, cartItemID int) (*models.CartItem, error) {
	var item models.CartItem
	var product models.Product

	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.added_at,
		       p.id, p.name, p.description, p.price, p.image_url, p.stock_quantity, p.category_id
		FROM cart_items ci
		INNER JOIN products p ON ci.product_id = p.id
		WHERE ci.id = ? AND ci.user_id = ?
	`

	err := db.QueryRow(query, cartItemID, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.AddedAt,
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.StockQuantity,
		&product.CategoryID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}

	item.Product = &product
	return &item, nil
}
