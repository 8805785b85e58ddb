package database

import (
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/models"
)

type ListUsersOptions struct {
	Page     int
	PageSize int
	Search   string
}

type UserPage struct {
	Users       []models.User `json:"users"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalUsers  int           `json:"totalUsers"`
}

func ListUsers(db *sql.DB, opts ListUsersOptions) (*UserPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}

	var conditions []string
	var args []interface{}

	if opts.Search != "" {
		conditions = append(conditions, "(email LIKE ? OR name LIKE ?)")
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users %s", whereClause)
	if err := db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT u.id, u.email, u.name, u.is_admin, u.created_at, u.updated_at,
		       (SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id),
		       (SELECT COUNT(*) FROM sessions s WHERE s.user_id = u.id AND s.expires_at > CURRENT_TIMESTAMP)
		FROM users u
		%s
		ORDER BY u.created_at DESC, u.id DESC
		LIMIT ? OFFSET ?`, whereClause)

	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.IsAdmin,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.OrderCount,
			&user.SessionCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	totalPages := (total + opts.PageSize - 1) / opts.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &UserPage{
		Users:       users,
		CurrentPage: opts.Page,
		TotalPages:  totalPages,
		TotalUsers:  total,
	}, nil
}

type UserDetail struct {
	User     models.User      `json:"user"`
	Orders   []models.Order   `json:"orders"`
	Sessions []models.Session `json:"sessions"`
}

func GetUserDetail(db *sql.DB, userID int) (*UserDetail, error) {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return nil, err
	}

	orders, err := GetOrdersForUser(db, userID)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE user_id = ? AND expires_at > CURRENT_TIMESTAMP
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return &UserDetail{
		User:     *user,
		Orders:   orders,
		Sessions: sessions,
	}, nil
}

// UpdateUser applies a partial admin edit. Nil fields keep their current
// value.
func UpdateUser(db *sql.DB, userID int, name *string, email *string, isAdmin *bool) (*models.User, error) {
	var setClauses []string
	var args []interface{}

	if name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *name)
	}
	if email != nil {
		setClauses = append(setClauses, "email = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(*email)))
	}
	if isAdmin != nil {
		setClauses = append(setClauses, "is_admin = ?")
		args = append(args, *isAdmin)
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, userID)

		query := fmt.Sprintf("UPDATE users SET %s WHERE id = ?", strings.Join(setClauses, ", "))
		result, err := db.Exec(query, args...)
		if err != nil {
			if IsUniqueConstraintError(err) {
				return nil, ErrDuplicateEmail
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}

	return GetUserByID(db, userID)
}

type ListOrdersOptions struct {
	Page     int
	PageSize int
	Status   string
}

type OrderPage struct {
	Orders      []models.Order `json:"orders"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalOrders int            `json:"totalOrders"`
}

func ListOrders(db *sql.DB, opts ListOrdersOptions) (*OrderPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}

	var conditions []string
	var args []interface{}

	if opts.Status != "" {
		conditions = append(conditions, "o.status = ?")
		args = append(args, opts.Status)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders o %s", whereClause)
	if err := db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.order_number, o.user_id, o.status, o.total_amount, o.created_at,
		       u.email
		FROM orders o
		INNER JOIN users u ON o.user_id = u.id
		%s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT ? OFFSET ?`, whereClause)

	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	totalPages := (total + opts.PageSize - 1) / opts.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &OrderPage{
		Orders:      orders,
		CurrentPage: opts.Page,
		TotalPages:  totalPages,
		TotalOrders: total,
	}, nil
}

func UpdateOrderStatus(db *sql.DB, orderID int, status string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, fmt.Errorf("invalid order status: %q", status)
	}

	result, err := db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrOrderNotFound
	}

	return GetOrder(db, orderID)
}
