package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/services"
	"github.com/mesafacil/backoffice/utils"
)

type PaymentController struct {
	DB       *gorm.DB
	Payments *services.PaymentService
	// UploadDir receives comprobante images; served under /uploads.
	UploadDir string
}

func NewPaymentController(db *gorm.DB, payments *services.PaymentService) *PaymentController {
	return &PaymentController{DB: db, Payments: payments, UploadDir: "public/uploads"}
}

// GenerateQR -> public, idempotent. Returns the order's payment artifact,
// creating it on first call.
func (pc *PaymentController) GenerateQR(c *gin.Context) {
	var body struct {
		OrderID uint `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment, err := pc.Payments.GenerateOrFetchQR(body.OrderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Payment QR", gin.H{
		"payment":     payment,
		"qr_code":     payment.QRImageURL,
		"payment_url": payment.PaymentURL,
	})
}

// GetPaymentByOrder -> public, used by the ordering page to poll status.
func (pc *PaymentController) GetPaymentByOrder(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	payment, err := pc.Payments.GetByOrder(uint(orderID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}

// GetAllPayments -> restaurant-scoped list with filters.
func (pc *PaymentController) GetAllPayments(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	query := pc.DB.Model(&models.Payment{}).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.restaurant_id = ?", restaurantID)

	if status := c.Query("status"); status != "" {
		query = query.Where("payments.status = ?", status)
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			query = query.Where("payments.created_at >= ?", t)
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			query = query.Where("payments.created_at <= ?", t)
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var payments []models.Payment
	if err := query.Order("payments.created_at DESC").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of payments", gin.H{
		"payments": payments,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  len(payments),
		},
	})
}

// UploadProof -> staff attaches a comprobante image. Accepts either an
// existing payment_id or an order_id (first upload creates the payment).
func (pc *PaymentController) UploadProof(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("proof image is required"))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("only jpg, jpeg, png or webp images are accepted"))
		return
	}

	filename := fmt.Sprintf("proof-%s%s", uuid.New().String(), ext)
	dst := filepath.Join(pc.UploadDir, filename)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	fileRef := "/uploads/" + filename

	var payment *models.Payment
	if paymentID, convErr := strconv.Atoi(c.PostForm("payment_id")); convErr == nil && paymentID > 0 {
		payment, err = pc.Payments.UploadProof(restaurantID, uint(paymentID), fileRef)
	} else {
		orderID, convErr := strconv.Atoi(c.PostForm("order_id"))
		if convErr != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("payment_id or order_id is required"))
			return
		}
		amount, convErr := strconv.ParseFloat(c.PostForm("amount"), 64)
		if convErr != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("amount is required"))
			return
		}
		method := models.PaymentMethod(c.PostForm("payment_method"))
		payment, err = pc.Payments.UploadProofForOrder(restaurantID, uint(orderID), fileRef, method, amount)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Proof uploaded", payment)
}

// VerifyPayment -> staff review step for an uploaded comprobante.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("payment_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid payment id"))
		return
	}

	payment, err := pc.Payments.Verify(restaurantID, uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Payment verified", payment)
}

// ConfirmPayment -> settles the payment and marks the order paid in one unit.
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
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

	id, err := strconv.Atoi(c.Param("payment_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid payment id"))
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&body)

	confirmedBy := "staff"
	if userID, exists := c.Get("user_id"); exists {
		var user models.User
		if err := pc.DB.First(&user, userID).Error; err == nil {
			confirmedBy = user.Name
		}
	}

	payment, order, err := pc.Payments.Confirm(restaurantID, uint(id), confirmedBy, body.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", gin.H{
		"payment": payment,
		"order":   order,
	})
}

// RejectPayment -> fails the payment; repeated rejects are no-op successes.
func (pc *PaymentController) RejectPayment(c *gin.Context) {
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

	id, err := strconv.Atoi(c.Param("payment_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid payment id"))
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	payment, order, err := pc.Payments.Reject(restaurantID, uint(id), body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Payment rejected", gin.H{
		"payment": payment,
		"order":   order,
	})
}

// RegenerateQR -> fresh artifact for a pending payment that failed to scan.
func (pc *PaymentController) RegenerateQR(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("payment_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid payment id"))
		return
	}

	payment, err := pc.Payments.Regenerate(restaurantID, uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Payment QR regenerated", gin.H{
		"payment":     payment,
		"qr_code":     payment.QRImageURL,
		"payment_url": payment.PaymentURL,
	})
}

// GetPaymentStats -> aggregate payment counts and amounts for a date range.
func (pc *PaymentController) GetPaymentStats(c *gin.Context) {
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
		TotalPayments     int64   `json:"total_payments"`
		CompletedPayments int64   `json:"completed_payments"`
		FailedPayments    int64   `json:"failed_payments"`
		PendingPayments   int64   `json:"pending_payments"`
		TotalAmount       float64 `json:"total_amount"`
		AverageAmount     float64 `json:"average_amount"`
	}

	base := pc.DB.Model(&models.Payment{}).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.restaurant_id = ? AND payments.created_at >= ? AND payments.created_at <= ?",
			restaurantID, dateFrom, dateTo)

	base.Session(&gorm.Session{}).Count(&stats.TotalPayments)
	base.Session(&gorm.Session{}).Where("payments.status = ?", models.PaymentStatusCompleted).Count(&stats.CompletedPayments)
	base.Session(&gorm.Session{}).Where("payments.status = ?", models.PaymentStatusFailed).Count(&stats.FailedPayments)
	base.Session(&gorm.Session{}).Where("payments.status = ?", models.PaymentStatusPending).Count(&stats.PendingPayments)

	var amounts struct {
		Total   float64
		Average float64
	}
	pc.DB.Model(&models.Payment{}).
		Select("COALESCE(SUM(payments.amount), 0) as total, COALESCE(AVG(payments.amount), 0) as average").
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.restaurant_id = ? AND payments.status = ? AND payments.created_at >= ? AND payments.created_at <= ?",
			restaurantID, models.PaymentStatusCompleted, dateFrom, dateTo).
		Scan(&amounts)
	stats.TotalAmount = amounts.Total
	stats.AverageAmount = amounts.Average

	utils.RespondJSON(c, http.StatusOK, "Payment statistics", gin.H{
		"stats": stats,
		"period": gin.H{
			"from": dateFrom,
			"to":   dateTo,
		},
	})
}
