package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/utils"
)

// PaymentService drives the payment lifecycle for one order: QR issuance,
// comprobante upload and review, confirmation, rejection and refund flagging.
// Every operation that touches both the payment and its order writes them in
// a single transaction; order.payment_status is mirrored here and only here.
type PaymentService struct {
	db *gorm.DB
	qr QRGenerator
}

func NewPaymentService(db *gorm.DB, qr QRGenerator) *PaymentService {
	return &PaymentService{db: db, qr: qr}
}

// GenerateOrFetchQR is the idempotent entry point of the public ordering
// flow. The existence check and the create run inside one transaction, and a
// unique index on order_id absorbs concurrent duplicate calls, so one order
// can never end up with two payments.
func (s *PaymentService) GenerateOrFetchQR(orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return &models.InvalidStateError{
				Current: string(order.Status),
				Reason:  "cannot generate a QR for a cancelled order",
			}
		}

		err := tx.Where("order_id = ?", orderID).First(&payment).Error
		if err == nil {
			return nil // existing artifact, returned as-is
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		paymentURL := s.qr.PaymentURL(order.ID)
		image, renderErr := s.qr.Render(paymentURL)
		if renderErr != nil {
			return renderErr
		}

		payment = models.Payment{
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			PaymentMethod: models.PaymentMethodQRCode,
			QRImageURL:    image,
			PaymentURL:    paymentURL,
			Status:        models.PaymentStatusPending,
		}
		if createErr := tx.Create(&payment).Error; createErr != nil {
			if isDuplicateKey(createErr) {
				// Another request created the row first; return its artifact.
				return tx.Where("order_id = ?", orderID).First(&payment).Error
			}
			return createErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UploadProofForOrder attaches a comprobante to an order, creating the
// payment row on first upload. The declared amount must match the order
// total within the currency epsilon.
func (s *PaymentService) UploadProofForOrder(restaurantID, orderID uint, fileRef string, method models.PaymentMethod, amount float64) (*models.Payment, error) {
	if method == "" {
		method = models.PaymentMethodQRCode
	}
	if !models.ValidPaymentMethod(method) {
		return nil, &models.ValidationError{Violations: []string{"invalid payment method"}}
	}

	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := findOrderScoped(tx, restaurantID, orderID, &order); err != nil {
			return err
		}

		if math.Abs(amount-order.TotalAmount) > totalEpsilon {
			return &models.TotalMismatchError{Declared: amount, Calculated: order.TotalAmount}
		}

		err := tx.Where("order_id = ?", orderID).First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			payment = models.Payment{
				OrderID:       order.ID,
				Amount:        order.TotalAmount,
				PaymentMethod: method,
				Status:        models.PaymentStatusPending,
			}
			if createErr := tx.Create(&payment).Error; createErr != nil {
				return createErr
			}
		} else if err != nil {
			return err
		}

		return applyProofUpload(tx, &payment, fileRef)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Payment #%d: comprobante uploaded for order #%d", payment.ID, payment.OrderID)
	return &payment, nil
}

// UploadProof attaches a comprobante to an existing payment.
func (s *PaymentService) UploadProof(restaurantID, paymentID uint, fileRef string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findPaymentScoped(tx, restaurantID, paymentID, &payment); err != nil {
			return err
		}
		return applyProofUpload(tx, &payment, fileRef)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func applyProofUpload(tx *gorm.DB, payment *models.Payment, fileRef string) error {
	if payment.PaymentMethod == models.PaymentMethodCash || payment.PaymentMethod == models.PaymentMethodCard {
		return &models.InvalidStateError{
			Current: string(payment.Status),
			Reason:  "proof upload does not apply to " + strings.ToLower(string(payment.PaymentMethod)) + " payments",
		}
	}
	if !payment.CanUploadProof() {
		return &models.InvalidStateError{
			Current: string(payment.Status),
			Reason:  "a proof can only be uploaded while the payment is pending",
		}
	}

	now := time.Now()
	if err := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"qr_image_url": fileRef,
			"status":       models.PaymentStatusQRUploaded,
			"uploaded_at":  now,
			"updated_at":   now,
		}).Error; err != nil {
		return err
	}

	payment.QRImageURL = fileRef
	payment.Status = models.PaymentStatusQRUploaded
	payment.UploadedAt = &now
	return nil
}

// Verify marks an uploaded comprobante as reviewed by staff.
func (s *PaymentService) Verify(restaurantID, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findPaymentScoped(tx, restaurantID, paymentID, &payment); err != nil {
			return err
		}
		if !payment.CanVerify() {
			return &models.InvalidTransitionError{
				Entity: "payment",
				From:   string(payment.Status),
				To:     string(models.PaymentStatusVerified),
			}
		}

		if err := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusQRUploaded).
			Updates(map[string]interface{}{
				"status":     models.PaymentStatusVerified,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}
		payment.Status = models.PaymentStatusVerified
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Confirm settles the payment and mirrors `paid` onto the linked order in
// the same transaction; a confirm can never succeed on the payment while
// failing on the order.
func (s *PaymentService) Confirm(restaurantID, paymentID uint, confirmedBy, notes string) (*models.Payment, *models.Order, error) {
	var payment models.Payment
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findPaymentScoped(tx, restaurantID, paymentID, &payment); err != nil {
			return err
		}
		if !payment.CanConfirm() {
			return &models.InvalidStateError{
				Current: string(payment.Status),
				Reason:  "payment was already processed",
			}
		}

		// A cancelled order must never flip to paid.
		if err := tx.First(&order, payment.OrderID).Error; err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return &models.InvalidStateError{
				Current: string(order.Status),
				Reason:  "cannot confirm a payment for a cancelled order",
			}
		}

		now := time.Now()
		if err := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, payment.Status).
			Updates(map[string]interface{}{
				"status":       models.PaymentStatusCompleted,
				"confirmed_by": confirmedBy,
				"notes":        notes,
				"confirmed_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
			Updates(map[string]interface{}{
				"payment_status": models.OrderPaymentPaid,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		payment.Status = models.PaymentStatusCompleted
		payment.ConfirmedBy = confirmedBy
		payment.Notes = notes
		payment.ConfirmedAt = &now
		return tx.First(&order, payment.OrderID).Error
	})
	if err != nil {
		return nil, nil, err
	}

	utils.InfoLogger.Printf("Payment #%d confirmed by %s, order #%d marked paid (%s)",
		payment.ID, confirmedBy, order.ID, utils.FormatCurrency(payment.Amount))
	return &payment, &order, nil
}

// Reject fails the payment and mirrors `failed` onto the order. Rejecting an
// already-failed payment is a no-op success and keeps the original reason.
func (s *PaymentService) Reject(restaurantID, paymentID uint, reason string) (*models.Payment, *models.Order, error) {
	var payment models.Payment
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findPaymentScoped(tx, restaurantID, paymentID, &payment); err != nil {
			return err
		}

		if payment.Status == models.PaymentStatusFailed {
			// Idempotent: the first rejection reason stands.
			return tx.First(&order, payment.OrderID).Error
		}
		if !payment.CanReject() {
			return &models.InvalidStateError{
				Current: string(payment.Status),
				Reason:  "a settled payment cannot be rejected",
			}
		}

		now := time.Now()
		if err := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, payment.Status).
			Updates(map[string]interface{}{
				"status":        models.PaymentStatusFailed,
				"reject_reason": reason,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
			Updates(map[string]interface{}{
				"payment_status": models.OrderPaymentFailed,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		payment.Status = models.PaymentStatusFailed
		payment.RejectReason = reason
		return tx.First(&order, payment.OrderID).Error
	})
	if err != nil {
		return nil, nil, err
	}

	utils.InfoLogger.Printf("Payment #%d rejected: %s", payment.ID, payment.RejectReason)
	return &payment, &order, nil
}

// Regenerate re-renders the QR artifact with a fresh issuance timestamp.
// Only legal while the payment is still pending; the status is untouched.
func (s *PaymentService) Regenerate(restaurantID, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findPaymentScoped(tx, restaurantID, paymentID, &payment); err != nil {
			return err
		}
		if payment.Status != models.PaymentStatusPending {
			return &models.InvalidStateError{
				Current: string(payment.Status),
				Reason:  "only pending payments can regenerate their QR",
			}
		}

		paymentURL := s.qr.PaymentURL(payment.OrderID)
		image, err := s.qr.Render(paymentURL)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"qr_image_url": image,
				"payment_url":  paymentURL,
				"updated_at":   time.Now(),
			}).Error; err != nil {
			return err
		}
		payment.QRImageURL = image
		payment.PaymentURL = paymentURL
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByOrder returns the payment attached to an order, if any.
func (s *PaymentService) GetByOrder(orderID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// refundForCancelledOrderTx flags a completed payment as refunded when its
// order is cancelled. Runs inside the caller's transaction and returns the
// payment status to mirror onto the order.
func (s *PaymentService) refundForCancelledOrderTx(tx *gorm.DB, order *models.Order) (models.OrderPaymentStatus, error) {
	var payment models.Payment
	err := tx.Where("order_id = ?", order.ID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Paid without a payment row should not happen; mirror refunded so
		// the cancellation is still visible on the order.
		return models.OrderPaymentRefunded, nil
	}
	if err != nil {
		return "", err
	}

	if payment.Status != models.PaymentStatusCompleted {
		return models.OrderPaymentRefunded, nil
	}

	if err := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusCompleted).
		Updates(map[string]interface{}{
			"status":     models.PaymentStatusRefunded,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return "", err
	}

	utils.InfoLogger.Printf("Payment #%d refund-flagged after cancellation of order #%d", payment.ID, order.ID)
	return models.OrderPaymentRefunded, nil
}

func findPaymentScoped(tx *gorm.DB, restaurantID, paymentID uint, out *models.Payment) error {
	err := tx.
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("payments.id = ? AND orders.restaurant_id = ?", paymentID, restaurantID).
		First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
