package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatal("Failed to open test database:", err)
	}

	// In-memory sqlite creates a fresh database per connection, so the
	// pool must stay at a single connection.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}

	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	name := "Test User"
	user, err := CreateUser(db, email, &name, "password123")
	if err != nil {
		t.Fatal("Failed to create user:", err)
	}
	return user
}

func createTestCategory(t *testing.T, db *sql.DB, name string) *models.Category {
	category, err := CreateCategory(db, name, nil)
	if err != nil {
		t.Fatal("Failed to create category:", err)
	}
	return category
}

func createTestProduct(t *testing.T, db *sql.DB, categoryID int, name, price string, stock int) *models.Product {
	product, err := CreateProduct(db, models.Product{
		Name:          name,
		Description:   "A test product",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		CategoryID:    categoryID,
	})
	if err != nil {
		t.Fatal("Failed to create product:", err)
	}
	return product
}

func TestUserCreationAndAuthentication(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	name := "Alice"
	user, err := CreateUser(db, "Alice@Example.com", &name, "password123")
	if err != nil {
		t.Fatal("Failed to create user:", err)
	}

	if user.Email != "alice@example.com" {
		t.Errorf("Expected email to be lowercased, got %s", user.Email)
	}

	if user.IsAdmin {
		t.Error("Expected new user to not be admin")
	}

	authUser, err := AuthenticateUser(db, "alice@example.com", "password123")
	if err != nil {
		t.Fatal("Failed to authenticate user:", err)
	}

	if authUser.ID != user.ID {
		t.Errorf("Expected user ID %d, got %d", user.ID, authUser.ID)
	}

	_, err = AuthenticateUser(db, "alice@example.com", "wrongpassword")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	_, err = AuthenticateUser(db, "nobody@example.com", "password123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	createTestUser(t, db, "dup@example.com")

	_, err := CreateUser(db, "DUP@example.com", nil, "password456")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Expected ErrDuplicateEmail, got %v", err)
	}
}

func TestSessionManagement(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "session@example.com")

	session, err := CreateSession(db, user.ID, time.Hour)
	if err != nil {
		t.Fatal("Failed to create session:", err)
	}

	if len(session.ID) != 64 {
		t.Errorf("Expected 64 character session token, got %d", len(session.ID))
	}

	validated, err := ValidateSession(db, session.ID)
	if err != nil {
		t.Fatal("Failed to validate session:", err)
	}

	if validated.ID != user.ID {
		t.Errorf("Expected user ID %d, got %d", user.ID, validated.ID)
	}

	if err := DeleteSession(db, session.ID); err != nil {
		t.Fatal("Failed to delete session:", err)
	}

	_, err = ValidateSession(db, session.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after deletion, got %v", err)
	}
}

func TestExpiredSessionIsDeletedOnValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "expired@example.com")

	session, err := CreateSession(db, user.ID, -time.Minute)
	if err != nil {
		t.Fatal("Failed to create session:", err)
	}

	_, err = ValidateSession(db, session.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound for expired session, got %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", session.ID).Scan(&count); err != nil {
		t.Fatal("Failed to count sessions:", err)
	}
	if count != 0 {
		t.Error("Expected expired session row to be deleted on validation")
	}
}

func TestUpdateAccount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "account@example.com")

	newName := "Renamed"
	newEmail := "Renamed@Example.com"
	updated, err := UpdateAccount(db, user.ID, &newName, &newEmail, nil)
	if err != nil {
		t.Fatal("Failed to update account:", err)
	}

	if updated.Name == nil || *updated.Name != "Renamed" {
		t.Errorf("Expected name 'Renamed', got %v", updated.Name)
	}
	if updated.Email != "renamed@example.com" {
		t.Errorf("Expected email 'renamed@example.com', got %s", updated.Email)
	}

	newPassword := "newpassword456"
	if _, err := UpdateAccount(db, user.ID, nil, nil, &newPassword); err != nil {
		t.Fatal("Failed to update password:", err)
	}

	if _, err := AuthenticateUser(db, "renamed@example.com", "newpassword456"); err != nil {
		t.Error("Expected authentication with new password to succeed:", err)
	}
}

func TestUpdateAccountRollsBackOnDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	createTestUser(t, db, "taken@example.com")
	user := createTestUser(t, db, "mover@example.com")

	newName := "Should Not Stick"
	takenEmail := "taken@example.com"
	_, err := UpdateAccount(db, user.ID, &newName, &takenEmail, nil)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("Expected ErrDuplicateEmail, got %v", err)
	}

	// The email conflict must undo the name change too.
	reloaded, err := GetUserByID(db, user.ID)
	if err != nil {
		t.Fatal("Failed to get user:", err)
	}
	if reloaded.Name == nil || *reloaded.Name != "Test User" {
		t.Errorf("Expected name to be unchanged, got %v", reloaded.Name)
	}
	if reloaded.Email != "mover@example.com" {
		t.Errorf("Expected email to be unchanged, got %s", reloaded.Email)
	}
}

func TestCategorySlugAndConflicts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	category, err := CreateCategory(db, "Hiking & Camping Gear", nil)
	if err != nil {
		t.Fatal("Failed to create category:", err)
	}

	if category.Slug != "hiking-camping-gear" {
		t.Errorf("Expected slug 'hiking-camping-gear', got %s", category.Slug)
	}

	_, err = CreateCategory(db, "Hiking & Camping Gear", nil)
	if !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("Expected ErrDuplicateCategory, got %v", err)
	}

	bySlug, err := GetCategoryBySlug(db, "hiking-camping-gear")
	if err != nil {
		t.Fatal("Failed to get category by slug:", err)
	}
	if bySlug.ID != category.ID {
		t.Errorf("Expected category ID %d, got %d", category.ID, bySlug.ID)
	}
}

func TestCategoryNameMustProduceSlug(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := CreateCategory(db, "!!!", nil)
	if !errors.Is(err, ErrInvalidCategoryName) {
		t.Errorf("Expected ErrInvalidCategoryName, got %v", err)
	}

	category := createTestCategory(t, db, "Valid Name")
	_, err = UpdateCategory(db, category.ID, "???", nil)
	if !errors.Is(err, ErrInvalidCategoryName) {
		t.Errorf("Expected ErrInvalidCategoryName on update, got %v", err)
	}

	// The failed rename leaves the category reachable under its old slug.
	if _, err := GetCategoryBySlug(db, "valid-name"); err != nil {
		t.Error("Expected category to keep its slug:", err)
	}
}

func TestDeleteCategoryWithProducts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	category := createTestCategory(t, db, "Electronics")
	createTestProduct(t, db, category.ID, "Widget", "9.99", 10)

	err := DeleteCategory(db, category.ID)
	if !errors.Is(err, ErrCategoryInUse) {
		t.Errorf("Expected ErrCategoryInUse, got %v", err)
	}

	empty := createTestCategory(t, db, "Empty")
	if err := DeleteCategory(db, empty.ID); err != nil {
		t.Fatal("Failed to delete empty category:", err)
	}

	_, err = GetCategory(db, empty.ID)
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("Expected ErrCategoryNotFound, got %v", err)
	}
}

func TestProductListingAndFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	books := createTestCategory(t, db, "Books")
	games := createTestCategory(t, db, "Games")

	createTestProduct(t, db, books.ID, "Go Programming", "29.99", 5)
	createTestProduct(t, db, books.ID, "Database Internals", "49.99", 3)
	createTestProduct(t, db, games.ID, "Chess Set", "19.99", 8)

	page, err := ListProducts(db, ListProductsOptions{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal("Failed to list products:", err)
	}
	if page.TotalProducts != 3 {
		t.Errorf("Expected 3 products, got %d", page.TotalProducts)
	}

	page, err = ListProducts(db, ListProductsOptions{Page: 1, PageSize: 10, CategorySlug: "books"})
	if err != nil {
		t.Fatal("Failed to list products by category:", err)
	}
	if page.TotalProducts != 2 {
		t.Errorf("Expected 2 books, got %d", page.TotalProducts)
	}

	page, err = ListProducts(db, ListProductsOptions{Page: 1, PageSize: 10, Search: "database"})
	if err != nil {
		t.Fatal("Failed to search products:", err)
	}
	if page.TotalProducts != 1 {
		t.Errorf("Expected 1 search result, got %d", page.TotalProducts)
	}

	page, err = ListProducts(db, ListProductsOptions{Page: 1, PageSize: 2, SortBy: "price", SortOrder: "asc"})
	if err != nil {
		t.Fatal("Failed to list sorted products:", err)
	}
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 pages, got %d", page.TotalPages)
	}
	if len(page.Products) != 2 {
		t.Fatalf("Expected 2 products on page, got %d", len(page.Products))
	}
	if page.Products[0].Name != "Chess Set" {
		t.Errorf("Expected cheapest product first, got %s", page.Products[0].Name)
	}
}

func TestDeleteProductReferencedByOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "buyer@example.com")
	category := createTestCategory(t, db, "Outdoors")
	product := createTestProduct(t, db, category.ID, "Tent", "120.00", 4)

	if _, err := AddToCart(db, user.ID, product.ID, 1); err != nil {
		t.Fatal("Failed to add to cart:", err)
	}

	if _, err := PlaceOrder(testCtx(t), db, user.ID, testOrderRequest()); err != nil {
		t.Fatal("Failed to place order:", err)
	}

	err := DeleteProduct(db, product.ID)
	if !errors.Is(err, ErrProductInUse) {
		t.Errorf("Expected ErrProductInUse, got %v", err)
	}

	unreferenced := createTestProduct(t, db, category.ID, "Lantern", "15.00", 2)
	if err := DeleteProduct(db, unreferenced.ID); err != nil {
		t.Fatal("Failed to delete unreferenced product:", err)
	}
}
