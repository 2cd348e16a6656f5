package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
)

func TestGenerateOrFetchQRIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	first, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, first.Status)
	assert.Equal(t, order.TotalAmount, first.Amount)
	assert.True(t, strings.HasPrefix(first.QRImageURL, "data:image/png;base64,"))
	assert.Contains(t, first.PaymentURL, "https://pay.test/pay/")

	second, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PaymentURL, second.PaymentURL, "repeat call returns the same artifact")

	var count int64
	db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGenerateOrFetchQRLosesInsertRace(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	// A competing request slips its payment row in between the existence
	// check and the create, so the create hits the unique index on order_id.
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("competing_insert", func(tx *gorm.DB) {
		if injected {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.Payment); !ok {
			return
		}
		injected = true
		competitor := models.Payment{
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			PaymentMethod: models.PaymentMethodQRCode,
			QRImageURL:    "data:image/png;base64,winner",
			PaymentURL:    "https://pay.test/pay/winner",
			Status:        models.PaymentStatusPending,
		}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(&competitor).Error)
	})
	require.NoError(t, err)
	defer db.Callback().Create().Remove("competing_insert")

	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err, "losing the insert race is not an error")
	assert.True(t, injected, "competing insert must have fired")
	assert.Equal(t, "https://pay.test/pay/winner", payment.PaymentURL, "loser returns the winner's artifact")

	var count int64
	db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count)
	assert.Equal(t, int64(1), count, "the order never ends up with two payments")
}

func TestGenerateQRForCancelledOrder(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	_, err := orders.Cancel(restaurant.ID, order.ID, "changed mind")
	require.NoError(t, err)

	_, err = svc.GenerateOrFetchQR(order.ID)
	var stateErr *models.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "cancelled", stateErr.Current)
}

func TestGenerateQRUnknownOrder(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))

	_, err := svc.GenerateOrFetchQR(999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUploadProofFlow(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.UploadProofForOrder(restaurant.ID, order.ID, "/uploads/proof.png", models.PaymentMethodTransfer, 10.00)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusQRUploaded, payment.Status)
	assert.Equal(t, "/uploads/proof.png", payment.QRImageURL)
	assert.NotNil(t, payment.UploadedAt)

	verified, err := svc.Verify(restaurant.ID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusVerified, verified.Status)

	// A second upload after review is illegal.
	_, err = svc.UploadProof(restaurant.ID, payment.ID, "/uploads/proof2.png")
	var stateErr *models.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestUploadProofAmountMismatch(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	_, err := svc.UploadProofForOrder(restaurant.ID, order.ID, "/uploads/proof.png", models.PaymentMethodTransfer, 9.00)
	var totalErr *models.TotalMismatchError
	require.ErrorAs(t, err, &totalErr)
	assert.Equal(t, 9.00, totalErr.Declared)

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	assert.Zero(t, count, "mismatched upload must not create a payment")
}

func TestUploadProofRejectedForCashPayments(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	_, err := svc.UploadProofForOrder(restaurant.ID, order.ID, "/uploads/proof.png", models.PaymentMethodCash, 10.00)
	var stateErr *models.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Contains(t, stateErr.Reason, "cash")
}

func TestConfirmSettlesPaymentAndOrderTogether(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.UploadProofForOrder(restaurant.ID, order.ID, "/uploads/proof.png", models.PaymentMethodQRCode, 10.00)
	require.NoError(t, err)

	confirmed, linkedOrder, err := svc.Confirm(restaurant.ID, payment.ID, "Luisa", "matches bank statement")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, confirmed.Status)
	assert.Equal(t, "Luisa", confirmed.ConfirmedBy)
	assert.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, models.OrderPaymentPaid, linkedOrder.PaymentStatus)

	// Both rows must show the settled state.
	var persistedOrder models.Order
	require.NoError(t, db.First(&persistedOrder, order.ID).Error)
	assert.Equal(t, models.OrderPaymentPaid, persistedOrder.PaymentStatus)
}

func TestConfirmStraightFromPending(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	// Generated-QR flow: settlement happens out of band, no proof upload.
	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)

	confirmed, _, err := svc.Confirm(restaurant.ID, payment.ID, "Luisa", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, confirmed.Status)
}

func TestConfirmCancelledOrderFails(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)

	_, err = orders.Cancel(restaurant.ID, order.ID, "customer left")
	require.NoError(t, err)

	_, _, err = svc.Confirm(restaurant.ID, payment.ID, "Luisa", "")
	var stateErr *models.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "cancelled", stateErr.Current)

	var persistedOrder models.Order
	require.NoError(t, db.First(&persistedOrder, order.ID).Error)
	assert.Equal(t, models.OrderPaymentPending, persistedOrder.PaymentStatus,
		"a cancelled order must never flip to paid")
}

func TestConfirmTwiceFails(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)
	_, _, err = svc.Confirm(restaurant.ID, payment.ID, "Luisa", "")
	require.NoError(t, err)

	_, _, err = svc.Confirm(restaurant.ID, payment.ID, "Marco", "")
	var stateErr *models.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "completed", stateErr.Current)
}

func TestRejectMirrorsFailureOntoOrder(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.UploadProofForOrder(restaurant.ID, order.ID, "/uploads/proof.png", models.PaymentMethodQRCode, 10.00)
	require.NoError(t, err)

	rejected, linkedOrder, err := svc.Reject(restaurant.ID, payment.ID, "illegible receipt")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, rejected.Status)
	assert.Equal(t, "illegible receipt", rejected.RejectReason)
	assert.Equal(t, models.OrderPaymentFailed, linkedOrder.PaymentStatus)
}

func TestRejectIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)

	_, _, err = svc.Reject(restaurant.ID, payment.ID, "first reason")
	require.NoError(t, err)

	again, _, err := svc.Reject(restaurant.ID, payment.ID, "second reason")
	require.NoError(t, err, "repeat rejection is a no-op success")
	assert.Equal(t, "first reason", again.RejectReason, "original reason stands")
}

func TestRejectSettledPaymentFails(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)
	_, _, err = svc.Confirm(restaurant.ID, payment.ID, "Luisa", "")
	require.NoError(t, err)

	_, _, err = svc.Reject(restaurant.ID, payment.ID, "too late")
	var stateErr *models.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestRegenerateOnlyWhilePending(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)

	regenerated, err := svc.Regenerate(restaurant.ID, payment.ID)
	require.NoError(t, err)
	assert.NotEqual(t, payment.PaymentURL, regenerated.PaymentURL, "fresh issuance reference")
	assert.Equal(t, models.PaymentStatusPending, regenerated.Status)

	_, _, err = svc.Confirm(restaurant.ID, payment.ID, "Luisa", "")
	require.NoError(t, err)

	_, err = svc.Regenerate(restaurant.ID, payment.ID)
	var stateErr *models.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestPaymentScopedToRestaurant(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedCatalog(t, db)
	svc := NewPaymentService(db, NewQRGenerator("https://pay.test"))
	orders := NewOrderService(db, NewGormMenuCatalog(db), svc)
	order := mustCreateOrder(t, orders, restaurant.ID)

	payment, err := svc.GenerateOrFetchQR(order.ID)
	require.NoError(t, err)

	_, _, err = svc.Confirm(restaurant.ID+1, payment.ID, "Luisa", "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
