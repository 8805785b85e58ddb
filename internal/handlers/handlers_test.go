package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/email"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *sql.DB) {
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err, "Failed to open test database")
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db), "Failed to run migrations")

	cfg := &config.Config{
		Environment:     "development",
		SessionDuration: time.Hour,
		AllowedOrigins:  "http://localhost",
	}

	r := gin.New()
	SetupRoutes(r, db, cfg, email.NewService(cfg))

	t.Cleanup(func() { db.Close() })
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, r *gin.Engine, emailAddr string) []*http.Cookie {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", gin.H{
		"email":    emailAddr,
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, "register failed: %s", w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected a session cookie on register")
	return cookies
}

func seedProduct(t *testing.T, db *sql.DB, name, price string, stock int) *models.Product {
	t.Helper()

	category, err := database.CreateCategory(db, name+" category", nil)
	require.NoError(t, err)

	product, err := database.CreateProduct(db, models.Product{
		Name:          name,
		Description:   "test",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		CategoryID:    category.ID,
	})
	require.NoError(t, err)
	return product
}

func TestRegisterAndLogin(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", gin.H{
		"email":    "new@example.com",
		"password": "password123",
	}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Same email again conflicts.
	w = doJSON(t, r, http.MethodPost, "/api/auth/register", gin.H{
		"email":    "new@example.com",
		"password": "password123",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/register", gin.H{
		"email":    "bad-email",
		"password": "password123",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "new@example.com",
		"password": "password123",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Result().Cookies())

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "new@example.com",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user": null}`, w.Body.String())

	cookies := registerAndLogin(t, r, "me@example.com")
	w = doJSON(t, r, http.MethodGet, "/api/auth/me", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		User *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "me@example.com", resp.User.Email)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	r, _ := setupTestRouter(t)

	cookies := registerAndLogin(t, r, "logout@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/auth/logout", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/cart", nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartRequiresAuth(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutFlow(t *testing.T) {
	r, db := setupTestRouter(t)

	product := seedProduct(t, db, "Backpack", "75.00", 5)
	cookies := registerAndLogin(t, r, "shopper@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/cart", gin.H{
		"product_id": product.ID,
		"quantity":   2,
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/cart", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Items    []models.CartItem `json:"items"`
		Subtotal decimal.Decimal   `json:"subtotal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Subtotal.Equal(decimal.RequireFromString("150.00")),
		"expected subtotal 150.00, got %s", cart.Subtotal)

	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"shipping_address": gin.H{
			"address1":   "1 Main St",
			"city":       "Springfield",
			"state":      "OR",
			"postalCode": "97477",
			"country":    "US",
		},
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var placed struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))
	assert.Equal(t, models.OrderStatusPending, placed.Order.Status)
	assert.True(t, placed.Order.TotalAmount.Equal(decimal.RequireFromString("150.00")))

	refreshed, err := database.GetProduct(db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, refreshed.StockQuantity)

	// The cart was consumed, so checking out again is a client error.
	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"shipping_address": gin.H{
			"address1":   "1 Main St",
			"city":       "Springfield",
			"state":      "OR",
			"postalCode": "97477",
			"country":    "US",
		},
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	r, db := setupTestRouter(t)

	product := seedProduct(t, db, "Scarce Item", "10.00", 2)
	cookies := registerAndLogin(t, r, "late@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/cart", gin.H{
		"product_id": product.ID,
		"quantity":   2,
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	_, err := db.Exec("UPDATE products SET stock_quantity = 1 WHERE id = ?", product.ID)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"shipping_address": gin.H{
			"address1":   "1 Main St",
			"city":       "Springfield",
			"state":      "OR",
			"postalCode": "97477",
			"country":    "US",
		},
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Scarce Item")
}

func TestOrdersAreScopedToOwner(t *testing.T) {
	r, db := setupTestRouter(t)

	product := seedProduct(t, db, "Shared Item", "20.00", 10)
	alice := registerAndLogin(t, r, "alice@example.com")
	bob := registerAndLogin(t, r, "bob@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/cart", gin.H{
		"product_id": product.ID,
		"quantity":   1,
	}, alice)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"shipping_address": gin.H{
			"address1":   "1 Main St",
			"city":       "Springfield",
			"state":      "OR",
			"postalCode": "97477",
			"country":    "US",
		},
	}, alice)
	require.Equal(t, http.StatusCreated, w.Code)

	var placed struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))

	w = doJSON(t, r, http.MethodGet, "/api/orders/"+itoa(placed.Order.ID), nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/orders/"+itoa(placed.Order.ID), nil, alice)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminCanViewAnyOrder(t *testing.T) {
	r, db := setupTestRouter(t)

	product := seedProduct(t, db, "Audited Item", "40.00", 5)
	owner := registerAndLogin(t, r, "owner@example.com")
	admin := registerAndLogin(t, r, "staff@example.com")

	_, err := db.Exec("UPDATE users SET is_admin = TRUE WHERE email = ?", "staff@example.com")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/cart", gin.H{
		"product_id": product.ID,
		"quantity":   1,
	}, owner)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"shipping_address": gin.H{
			"address1":   "1 Main St",
			"city":       "Springfield",
			"state":      "OR",
			"postalCode": "97477",
			"country":    "US",
		},
	}, owner)
	require.Equal(t, http.StatusCreated, w.Code)

	var placed struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))

	w = doJSON(t, r, http.MethodGet, "/api/orders/"+itoa(placed.Order.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	var fetched struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Len(t, fetched.Order.Items, 1)
	assert.Equal(t, "1 Main St", fetched.Order.ShippingAddress.Address1)
}

func TestAdminAccessControl(t *testing.T) {
	r, db := setupTestRouter(t)

	cookies := registerAndLogin(t, r, "plain@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/admin/users", nil, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/categories", gin.H{"name": "Sneaky"}, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := db.Exec("UPDATE users SET is_admin = TRUE WHERE email = ?", "plain@example.com")
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodGet, "/api/admin/users", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/categories", gin.H{"name": "Allowed Now"}, cookies)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	r, db := setupTestRouter(t)

	product := seedProduct(t, db, "Catalog Item", "15.00", 3)

	w := doJSON(t, r, http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page database.ProductPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalProducts)

	w = doJSON(t, r, http.MethodGet, "/api/products/"+itoa(product.ID), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/products/999999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/categories", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/categories/catalog-item-category", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/categories/no-such-slug", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
