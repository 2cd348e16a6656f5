package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/controllers"
	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/services"
	"github.com/mesafacil/backoffice/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Restaurant{},
		&models.User{},
		&models.Category{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	))

	restaurant := models.Restaurant{Name: "La Esquina"}
	require.NoError(t, db.Create(&restaurant).Error)
	category := models.Category{RestaurantID: restaurant.ID, Name: "Mains"}
	require.NoError(t, db.Create(&category).Error)
	items := []models.MenuItem{
		{RestaurantID: restaurant.ID, CategoryID: category.ID, Name: "Arepa", Price: 5.00, Available: true},
		{RestaurantID: restaurant.ID, CategoryID: category.ID, Name: "Empanada", Price: 3.50, Available: true},
	}
	require.NoError(t, db.Create(&items).Error)
	return db
}

// fakeAuth stands in for the JWT middleware and pins the request to
// restaurant 1 with the given role.
func fakeAuth(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("restaurant_id", uint(1))
		c.Set("role", role)
		c.Next()
	}
}

func setupOrderRouter(db *gorm.DB, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	payments := services.NewPaymentService(db, services.NewQRGenerator("https://pay.test"))
	orders := services.NewOrderService(db, services.NewGormMenuCatalog(db), payments)
	ctrl := controllers.NewOrderController(db, orders)

	r.POST("/orders", ctrl.CreateOrder)
	auth := r.Group("/", fakeAuth(role))
	auth.GET("/orders", ctrl.GetAllOrders)
	auth.GET("/orders/pending", ctrl.GetPendingOrders)
	auth.GET("/orders/:order_id", ctrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", ctrl.UpdateOrderStatus)
	auth.POST("/orders/:order_id/cancel", ctrl.CancelOrder)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func patchJSON(t *testing.T, r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, path, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func createOrderPayload() map[string]interface{} {
	return map[string]interface{}{
		"restaurant_id": 1,
		"customer_name": "Ana",
		"items": []map[string]interface{}{
			{"menu_item_id": 1, "quantity": 2, "unit_price": 5.00},
		},
		"total_amount": 10.00,
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db, "staff")

	w := postJSON(t, r, "/orders", createOrderPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, 10.00, data["total_amount"])
}

func TestCreateOrderEndpointTotalMismatch(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db, "staff")

	payload := createOrderPayload()
	payload["total_amount"] = 11.00
	w := postJSON(t, r, "/orders", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["success"])
}

func TestUpdateOrderStatusEndpoint(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db, "staff")

	w := postJSON(t, r, "/orders", createOrderPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := uint(decodeBody(t, w)["data"].(map[string]interface{})["id"].(float64))

	w = patchJSON(t, r, fmt.Sprintf("/orders/%d/status", orderID),
		map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Skipping straight to delivered is a conflict carrying the current status.
	w = patchJSON(t, r, fmt.Sprintf("/orders/%d/status", orderID),
		map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "confirmed", data["current_status"])
}

func TestCancelOrderRequiresManagerRole(t *testing.T) {
	db := setupTestDB(t)
	staffRouter := setupOrderRouter(db, "staff")

	w := postJSON(t, staffRouter, "/orders", createOrderPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := uint(decodeBody(t, w)["data"].(map[string]interface{})["id"].(float64))

	w = postJSON(t, staffRouter, fmt.Sprintf("/orders/%d/cancel", orderID),
		map[string]string{"reason": "spill"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	managerRouter := setupOrderRouter(db, "manager")
	w = postJSON(t, managerRouter, fmt.Sprintf("/orders/%d/cancel", orderID),
		map[string]string{"reason": "spill"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "cancelled", data["status"])
	assert.Equal(t, "spill", data["cancel_reason"])
}

func TestGetOrderEndpoints(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db, "staff")

	w := postJSON(t, r, "/orders", createOrderPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := uint(decodeBody(t, w)["data"].(map[string]interface{})["id"].(float64))

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["items"], 1)

	req, _ = http.NewRequest(http.MethodGet, "/orders/9999", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/orders/pending", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/orders?status=pending", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	listData := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Len(t, listData["orders"], 1)
}
