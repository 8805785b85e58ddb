package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PlaceOrderRequest struct {
	ShippingAddress models.Address
	BillingAddress  models.Address
	PaymentIntentID *string
}

// PlaceOrder converts the user's cart into a durable order as one
// all-or-nothing transaction: it re-checks stock against the live product
// rows, snapshots prices onto the order items, computes the decimal total,
// decrements inventory and clears the cart. Any failure leaves stock, cart
// and order tables untouched.
//
// The payment reference, when present, is stored verbatim; no payment call is
// made here.
func PlaceOrder(ctx context.Context, db *sql.DB, userID int, req PlaceOrderRequest) (*models.Order, error) {
	if req.BillingAddress.IsZero() {
		req.BillingAddress = req.ShippingAddress
	}

	shippingJSON, err := json.Marshal(req.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(req.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to encode billing address: %w", err)
	}

	var orderID int

	err = WithTransaction(ctx, db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT ci.product_id, ci.quantity, p.name, p.price, p.stock_quantity
			FROM cart_items ci
			INNER JOIN products p ON ci.product_id = p.id
			WHERE ci.user_id = ?
			ORDER BY ci.added_at`,
			userID)
		if err != nil {
			return fmt.Errorf("failed to query cart: %w", err)
		}

		type cartLine struct {
			productID int
			quantity  int
			name      string
			price     decimal.Decimal
			stock     int
		}

		var lines []cartLine
		for rows.Next() {
			var line cartLine
			if err := rows.Scan(&line.productID, &line.quantity, &line.name, &line.price, &line.stock); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan cart line: %w", err)
			}
			lines = append(lines, line)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating cart: %w", err)
		}
		rows.Close()

		if len(lines) == 0 {
			return ErrEmptyCart
		}

		totalAmount := decimal.Zero
		for _, line := range lines {
			if line.stock < line.quantity {
				return &InsufficientStockError{
					ProductID:   line.productID,
					ProductName: line.name,
					Available:   line.stock,
					Requested:   line.quantity,
				}
			}
			totalAmount = totalAmount.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
		}

		orderNumber := uuid.New().String()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO orders (order_number, user_id, status, total_amount, shipping_address, billing_address, payment_intent_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderNumber, userID, models.OrderStatusPending, totalAmount,
			string(shippingJSON), string(billingJSON), req.PaymentIntentID)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get order ID: %w", err)
		}
		orderID = int(id)

		for _, line := range lines {
			// price_at_purchase is the snapshot read above, not a re-read
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
				VALUES (?, ?, ?, ?)`,
				orderID, line.productID, line.quantity, line.price)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		for _, line := range lines {
			if err := DecrementStock(tx, line.productID, line.quantity); err != nil {
				if err == ErrInsufficientStock {
					return &InsufficientStockError{
						ProductID:   line.productID,
						ProductName: line.name,
						Available:   line.stock,
						Requested:   line.quantity,
					}
				}
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(db, orderID)
}

func GetOrder(db *sql.DB, orderID int) (*models.Order, error) {
	order := &models.Order{}
	var shippingJSON, billingJSON string

	query := `
		SELECT o.id, o.order_number, o.user_id, o.status, o.total_amount,
		       o.shipping_address, o.billing_address, o.payment_intent_id, o.created_at,
		       u.email
		FROM orders o
		INNER JOIN users u ON o.user_id = u.id
		WHERE o.id = ?
	`

	err := db.QueryRow(query, orderID).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&shippingJSON,
		&billingJSON,
		&order.PaymentIntentID,
		&order.CreatedAt,
		&order.UserEmail,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if err := json.Unmarshal([]byte(shippingJSON), &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	if err := json.Unmarshal([]byte(billingJSON), &order.BillingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode billing address: %w", err)
	}

	items, err := getOrderItems(db, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func GetOrdersForUser(db *sql.DB, userID int) ([]models.Order, error) {
	query := `
		SELECT id, order_number, user_id, status, total_amount,
		       shipping_address, billing_address, payment_intent_id, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		var shippingJSON, billingJSON string
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.Status,
			&order.TotalAmount,
			&shippingJSON,
			&billingJSON,
			&order.PaymentIntentID,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		if err := json.Unmarshal([]byte(shippingJSON), &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
		if err := json.Unmarshal([]byte(billingJSON), &order.BillingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode billing address: %w", err)
		}

		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		items, err := getOrderItems(db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func getOrderItems(db *sql.DB, orderID int) ([]models.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_at_purchase,
		       p.name, p.image_url
		FROM order_items oi
		INNER JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id
	`

	rows, err := db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.PriceAtPurchase,
			&item.ProductName,
			&item.ProductImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
