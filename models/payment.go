package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusQRUploaded PaymentStatus = "qr_uploaded"
	PaymentStatusVerified   PaymentStatus = "verified"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	// PaymentStatusRefunded is reachable only from completed, and only when
	// the linked order is cancelled after it was paid.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodQRCode   PaymentMethod = "QR_CODE"
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// Payment records how an order's total was settled. At most one payment
// exists per order; it is retained as an audit record and never deleted.
type Payment struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	OrderID uint  `gorm:"not null;uniqueIndex" json:"order_id"`
	Order   Order `gorm:"foreignKey:OrderID" json:"-"`
	// Amount must equal the linked order's total at generation time.
	Amount        float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null;default:'QR_CODE'" json:"payment_method"`
	// QRImageURL holds either the self-issued QR (PNG data URL) or the
	// uploaded comprobante image path.
	QRImageURL   string        `gorm:"type:text" json:"qr_image_url"`
	PaymentURL   string        `gorm:"type:varchar(512)" json:"payment_url,omitempty"`
	Status       PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ConfirmedBy  string        `gorm:"type:varchar(255)" json:"confirmed_by,omitempty"`
	Notes        string        `gorm:"type:text" json:"notes,omitempty"`
	RejectReason string        `gorm:"type:text" json:"reject_reason,omitempty"`
	UploadedAt   *time.Time    `json:"uploaded_at,omitempty"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodQRCode, PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// CanUploadProof: a comprobante may only be attached while the payment is
// still pending; re-uploads after review are rejected.
func (p *Payment) CanUploadProof() bool {
	return p.Status == PaymentStatusPending
}

// CanVerify: the staff review step moves an uploaded proof to verified.
func (p *Payment) CanVerify() bool {
	return p.Status == PaymentStatusQRUploaded
}

// CanConfirm: manual proofs confirm from qr_uploaded or verified; the
// generated-QR flow confirms straight from pending (out-of-band settlement).
func (p *Payment) CanConfirm() bool {
	switch p.Status {
	case PaymentStatusPending, PaymentStatusQRUploaded, PaymentStatusVerified:
		return true
	}
	return false
}

// CanReject: legal from every non-terminal state.
func (p *Payment) CanReject() bool {
	switch p.Status {
	case PaymentStatusPending, PaymentStatusQRUploaded, PaymentStatusVerified:
		return true
	}
	return false
}

func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}
