package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentStatus(t *testing.T) {
	for _, in := range []string{"SUCCESS", "success", "Success"} {
		status, err := ParsePaymentStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, StatusSuccess, status)
	}

	for _, in := range []string{"", "DONE", "SUCCESSFUL"} {
		_, err := ParsePaymentStatus(in)
		assert.Error(t, err, in)
	}
}

func TestApplyDefaults(t *testing.T) {
	req := CreatePaymentRequest{}
	req.ApplyDefaults()
	assert.Equal(t, "BRL", req.Currency)
	assert.Equal(t, "STRIPE", req.Gateway)

	req = CreatePaymentRequest{Currency: "USD", Gateway: "PAGSEGURO"}
	req.ApplyDefaults()
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "PAGSEGURO", req.Gateway)
}

func TestToResponseHidesAuditFields(t *testing.T) {
	now := time.Now()
	payment := Payment{
		ID:              7,
		PaymentID:       "ch_1",
		CustomerID:      "cust-1",
		CustomerEmail:   "cust@example.com",
		Amount:          decimal.RequireFromString("100.00"),
		Currency:        "BRL",
		PaymentMethod:   MethodPix,
		Status:          StatusSuccess,
		Gateway:         "STRIPE",
		GatewayResponse: `{"secret":"audit-only"}`,
		CreatedAt:       now,
		ProcessedAt:     &now,
	}

	data, err := json.Marshal(payment.ToResponse())
	require.NoError(t, err)

	assert.NotContains(t, string(data), "audit-only")
	assert.NotContains(t, string(data), "gateway_response")
	assert.NotContains(t, string(data), "processed_at")
	assert.Contains(t, string(data), "ch_1")
}
