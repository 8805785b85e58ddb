package database

import (
	"errors"
	"sync"
	"testing"
)

func TestAddToCartMergesQuantities(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "cart@example.com")
	category := createTestCategory(t, db, "Kitchen")
	product := createTestProduct(t, db, category.ID, "Kettle", "35.00", 10)

	item, err := AddToCart(db, user.ID, product.ID, 2)
	if err != nil {
		t.Fatal("Failed to add to cart:", err)
	}
	if item.Quantity != 2 {
		t.Errorf("Expected quantity 2, got %d", item.Quantity)
	}

	merged, err := AddToCart(db, user.ID, product.ID, 3)
	if err != nil {
		t.Fatal("Failed to add to cart again:", err)
	}
	if merged.ID != item.ID {
		t.Error("Expected the same cart line to be reused")
	}
	if merged.Quantity != 5 {
		t.Errorf("Expected merged quantity 5, got %d", merged.Quantity)
	}

	items, err := GetCartItems(db, user.ID)
	if err != nil {
		t.Fatal("Failed to get cart items:", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 cart line, got %d", len(items))
	}
}

func TestAddToCartRejectsExcessiveQuantity(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "greedy@example.com")
	category := createTestCategory(t, db, "Kitchen")
	product := createTestProduct(t, db, category.ID, "Toaster", "25.00", 3)

	_, err := AddToCart(db, user.ID, product.ID, 4)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatal("Expected an InsufficientStockError")
	}
	if stockErr.Available != 3 || stockErr.Requested != 4 {
		t.Errorf("Expected available 3 requested 4, got %d/%d", stockErr.Available, stockErr.Requested)
	}

	// Merging past the stock ceiling is rejected as well.
	if _, err := AddToCart(db, user.ID, product.ID, 2); err != nil {
		t.Fatal("Failed to add to cart:", err)
	}
	_, err = AddToCart(db, user.ID, product.ID, 2)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock on merge, got %v", err)
	}
}

func TestConcurrentAddToCartMergesIntoOneLine(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "race-cart@example.com")
	category := createTestCategory(t, db, "Kitchen")
	product := createTestProduct(t, db, category.ID, "Grinder", "45.00", 10)

	// Both adds may miss the existing row and race on the first insert;
	// the loser must merge, not fail on the unique constraint.
	const adders = 2
	results := make(chan error, adders)
	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := AddToCart(db, user.ID, product.ID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Error("Expected concurrent add to succeed:", err)
		}
	}

	items, err := GetCartItems(db, user.ID)
	if err != nil {
		t.Fatal("Failed to get cart items:", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 cart line, got %d", len(items))
	}
	if items[0].Quantity != adders {
		t.Errorf("Expected quantity %d, got %d", adders, items[0].Quantity)
	}
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "update@example.com")
	category := createTestCategory(t, db, "Kitchen")
	product := createTestProduct(t, db, category.ID, "Blender", "60.00", 5)

	item, err := AddToCart(db, user.ID, product.ID, 1)
	if err != nil {
		t.Fatal("Failed to add to cart:", err)
	}

	updated, err := UpdateCartItemQuantity(db, user.ID, item.ID, 4)
	if err != nil {
		t.Fatal("Failed to update quantity:", err)
	}
	if updated.Quantity != 4 {
		t.Errorf("Expected quantity 4, got %d", updated.Quantity)
	}

	_, err = UpdateCartItemQuantity(db, user.ID, item.ID, 6)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock, got %v", err)
	}

	if err := RemoveCartItem(db, user.ID, item.ID); err != nil {
		t.Fatal("Failed to remove cart item:", err)
	}

	err = RemoveCartItem(db, user.ID, item.ID)
	if !errors.Is(err, ErrCartItemNotFound) {
		t.Errorf("Expected ErrCartItemNotFound, got %v", err)
	}
}

func TestCartItemsAreScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice-cart@example.com")
	bob := createTestUser(t, db, "bob-cart@example.com")
	category := createTestCategory(t, db, "Kitchen")
	product := createTestProduct(t, db, category.ID, "Mixer", "80.00", 5)

	item, err := AddToCart(db, alice.ID, product.ID, 1)
	if err != nil {
		t.Fatal("Failed to add to cart:", err)
	}

	err = RemoveCartItem(db, bob.ID, item.ID)
	if !errors.Is(err, ErrCartItemNotFound) {
		t.Errorf("Expected ErrCartItemNotFound for other user's item, got %v", err)
	}

	items, err := GetCartItems(db, bob.ID)
	if err != nil {
		t.Fatal("Failed to get cart items:", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty cart for other user, got %d items", len(items))
	}
}

func TestClearCart(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := createTestUser(t, db, "clear@example.com")
	category := createTestCategory(t, db, "Kitchen")
	first := createTestProduct(t, db, category.ID, "Pan", "20.00", 5)
	second := createTestProduct(t, db, category.ID, "Pot", "30.00", 5)

	if _, err := AddToCart(db, user.ID, first.ID, 1); err != nil {
		t.Fatal("Failed to add to cart:", err)
	}
	if _, err := AddToCart(db, user.ID, second.ID, 2); err != nil {
		t.Fatal("Failed to add to cart:", err)
	}

	if err := ClearCart(db, user.ID); err != nil {
		t.Fatal("Failed to clear cart:", err)
	}

	items, err := GetCartItems(db, user.ID)
	if err != nil {
		t.Fatal("Failed to get cart items:", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty cart, got %d items", len(items))
	}
}
