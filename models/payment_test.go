package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentGuards(t *testing.T) {
	tests := []struct {
		status     PaymentStatus
		canUpload  bool
		canVerify  bool
		canConfirm bool
		canReject  bool
		terminal   bool
	}{
		{PaymentStatusPending, true, false, true, true, false},
		{PaymentStatusQRUploaded, false, true, true, true, false},
		{PaymentStatusVerified, false, false, true, true, false},
		{PaymentStatusCompleted, false, false, false, false, true},
		{PaymentStatusFailed, false, false, false, false, true},
		{PaymentStatusRefunded, false, false, false, false, true},
	}

	for _, tt := range tests {
		p := Payment{Status: tt.status}
		assert.Equal(t, tt.canUpload, p.CanUploadProof(), "%s CanUploadProof", tt.status)
		assert.Equal(t, tt.canVerify, p.CanVerify(), "%s CanVerify", tt.status)
		assert.Equal(t, tt.canConfirm, p.CanConfirm(), "%s CanConfirm", tt.status)
		assert.Equal(t, tt.canReject, p.CanReject(), "%s CanReject", tt.status)
		assert.Equal(t, tt.terminal, p.IsTerminal(), "%s IsTerminal", tt.status)
	}
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodQRCode))
	assert.True(t, ValidPaymentMethod(PaymentMethodCash))
	assert.True(t, ValidPaymentMethod(PaymentMethodCard))
	assert.True(t, ValidPaymentMethod(PaymentMethodTransfer))
	assert.False(t, ValidPaymentMethod("CHEQUE"))
	assert.False(t, ValidPaymentMethod(""))
}
