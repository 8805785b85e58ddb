package database

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrDuplicateEmail      = errors.New("email already in use")
	ErrSessionNotFound     = errors.New("session not found or expired")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrInvalidCategoryName = errors.New("category name must contain letters or digits")
	ErrDuplicateCategory   = errors.New("category with this name or slug already exists")
	ErrCategoryInUse       = errors.New("category still has products associated with it")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductInUse        = errors.New("product is referenced by existing orders")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOrderNotFound       = errors.New("order not found")
)

// InsufficientStockError names the offending product and the quantity still
// available. errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ProductID   int
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsUniqueConstraintError reports whether err comes from a sqlite UNIQUE
// constraint violation.
func IsUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyConstraintError reports whether err comes from a sqlite
// FOREIGN KEY restriction (e.g. deleting a product referenced by order items).
func IsForeignKeyConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
