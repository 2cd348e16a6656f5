package services

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// QRGenerator renders a payment URL as a QR image artifact.
type QRGenerator interface {
	PaymentURL(orderID uint) string
	Render(paymentURL string) (string, error)
}

// DefaultQRGenerator issues self-hosted payment codes. The timestamp and
// nonce in the URL are cache-busting, not security tokens.
type DefaultQRGenerator struct {
	BaseURL string
}

func NewQRGenerator(baseURL string) *DefaultQRGenerator {
	return &DefaultQRGenerator{BaseURL: baseURL}
}

func (g *DefaultQRGenerator) PaymentURL(orderID uint) string {
	return fmt.Sprintf("%s/pay/%d?ts=%d&ref=%s",
		g.BaseURL, orderID, time.Now().UnixMilli(), uuid.New().String()[:8])
}

// Render encodes the URL as a 256px PNG and returns it as a data URL so it
// can be stored and served without touching the filesystem.
func (g *DefaultQRGenerator) Render(paymentURL string) (string, error) {
	png, err := qrcode.Encode(paymentURL, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
