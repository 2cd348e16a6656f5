package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/services"
	"github.com/mesafacil/backoffice/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

func NewOrderController(db *gorm.DB, orders *services.OrderService) *OrderController {
	return &OrderController{DB: db, Orders: orders}
}

// CreateOrder -> public endpoint for the customer ordering page.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var input services.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.CreateOrder(input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders -> restaurant-scoped list with filters and pagination.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	query := oc.DB.Preload("Items").Where("restaurant_id = ?", restaurantID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if ps := c.Query("payment_status"); ps != "" {
		query = query.Where("payment_status = ?", ps)
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			query = query.Where("created_at >= ?", t)
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			query = query.Where("created_at <= ?", t)
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var orders []models.Order
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{
		"orders": orders,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  len(orders),
		},
	})
}

// GetOrderByID -> detail of one order, restaurant-scoped.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	order, err := oc.Orders.GetOrder(restaurantID, uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrderStatus -> staff advances the fulfillment workflow.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var body struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateStatus(restaurantID, uint(id), body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// CancelOrder -> abort a non-terminal order, refund-flagging a paid payment.
func (oc *OrderController) CancelOrder(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	role, _ := c.Get("role")
	if role != "admin" && role != "manager" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	order, err := oc.Orders.Cancel(restaurantID, uint(id), body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

// EditOrder -> admin/manager replaces the line items; everything is
// revalidated exactly as at creation.
func (oc *OrderController) EditOrder(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	role, _ := c.Get("role")
	if role != "admin" && role != "manager" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var body struct {
		Items []services.OrderItemInput `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.EditOrder(restaurantID, uint(id), body.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// GetPendingOrders -> orders still moving through the kitchen.
func (oc *OrderController) GetPendingOrders(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var orders []models.Order
	if err := oc.DB.Preload("Items").
		Where("restaurant_id = ? AND status IN ?", restaurantID,
			[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusPreparing}).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Pending orders", gin.H{
		"orders": orders,
		"total":  len(orders),
	})
}

// GetOrderStats -> aggregate counts and revenue for a date range.
func (oc *OrderController) GetOrderStats(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	role, _ := c.Get("role")
	if role != "admin" && role != "manager" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	dateFrom, dateTo := parseDateRange(c)

	var stats struct {
		TotalOrders     int64   `json:"total_orders"`
		CompletedOrders int64   `json:"completed_orders"`
		CancelledOrders int64   `json:"cancelled_orders"`
		PaidOrders      int64   `json:"paid_orders"`
		TotalRevenue    float64 `json:"total_revenue"`
		AverageOrder    float64 `json:"average_order_value"`
	}

	base := oc.DB.Model(&models.Order{}).
		Where("restaurant_id = ? AND created_at >= ? AND created_at <= ?", restaurantID, dateFrom, dateTo)

	base.Session(&gorm.Session{}).Count(&stats.TotalOrders)
	base.Session(&gorm.Session{}).Where("status = ?", models.OrderStatusDelivered).Count(&stats.CompletedOrders)
	base.Session(&gorm.Session{}).Where("status = ?", models.OrderStatusCancelled).Count(&stats.CancelledOrders)
	base.Session(&gorm.Session{}).Where("payment_status = ?", models.OrderPaymentPaid).Count(&stats.PaidOrders)

	var revenue struct {
		Total   float64
		Average float64
	}
	oc.DB.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0) as total, COALESCE(AVG(total_amount), 0) as average").
		Where("restaurant_id = ? AND payment_status = ? AND created_at >= ? AND created_at <= ?",
			restaurantID, models.OrderPaymentPaid, dateFrom, dateTo).
		Scan(&revenue)
	stats.TotalRevenue = revenue.Total
	stats.AverageOrder = revenue.Average

	utils.RespondJSON(c, http.StatusOK, "Order statistics", gin.H{
		"stats": stats,
		"period": gin.H{
			"from": dateFrom,
			"to":   dateTo,
		},
	})
}

// GetDailySummary -> today's totals plus the pending queue by status.
func (oc *OrderController) GetDailySummary(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var todayOrders []models.Order
	if err := oc.DB.
		Where("restaurant_id = ? AND created_at >= ?", restaurantID, startOfDay).
		Find(&todayOrders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var completed, cancelled int
	var revenue float64
	for _, o := range todayOrders {
		if o.Status == models.OrderStatusDelivered {
			completed++
		}
		if o.Status == models.OrderStatusCancelled {
			cancelled++
		}
		if o.PaymentStatus == models.OrderPaymentPaid {
			revenue += o.TotalAmount
		}
	}

	byStatus := map[models.OrderStatus]int64{}
	for _, status := range []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusConfirmed,
		models.OrderStatusPreparing, models.OrderStatusReady,
	} {
		var count int64
		oc.DB.Model(&models.Order{}).
			Where("restaurant_id = ? AND status = ?", restaurantID, status).
			Count(&count)
		byStatus[status] = count
	}

	utils.RespondJSON(c, http.StatusOK, "Daily summary", gin.H{
		"today": gin.H{
			"total_orders":      len(todayOrders),
			"completed_orders":  completed,
			"cancelled_orders":  cancelled,
			"total_revenue":     revenue,
			"formatted_revenue": utils.FormatCurrency(revenue),
		},
		"pending": gin.H{
			"by_status": byStatus,
		},
	})
}

// SearchOrders -> lookup by customer name, phone or order id.
func (oc *OrderController) SearchOrders(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	term := c.Query("q")
	if term == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("search term is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	var orders []models.Order
	query := oc.DB.Preload("Items").Where("restaurant_id = ?", restaurantID)
	if id, err := strconv.Atoi(term); err == nil {
		query = query.Where("id = ? OR customer_name LIKE ? OR customer_phone LIKE ?",
			id, "%"+term+"%", "%"+term+"%")
	} else {
		query = query.Where("customer_name LIKE ? OR customer_phone LIKE ?",
			"%"+strings.TrimSpace(term)+"%", "%"+term+"%")
	}
	if err := query.Order("created_at DESC").Limit(limit).Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Search results", gin.H{
		"orders":      orders,
		"search_term": term,
		"total":       len(orders),
	})
}

// parseDateRange defaults to the last 30 days.
func parseDateRange(c *gin.Context) (time.Time, time.Time) {
	dateFrom := time.Now().AddDate(0, 0, -30)
	dateTo := time.Now()

	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			dateFrom = t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			dateTo = t
		}
	}
	return dateFrom, dateTo
}
