package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusPending        PaymentStatus = "PENDING"
	StatusProcessing     PaymentStatus = "PROCESSING"
	StatusSuccess        PaymentStatus = "SUCCESS"
	StatusFailed         PaymentStatus = "FAILED"
	StatusRefunded       PaymentStatus = "REFUNDED"
	StatusCancelled      PaymentStatus = "CANCELLED"
	StatusRequiresAction PaymentStatus = "REQUIRES_ACTION"
)

// ParsePaymentStatus accepts any casing of the enum names.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(s))
	switch status {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailed,
		StatusRefunded, StatusCancelled, StatusRequiresAction:
		return status, nil
	}
	return "", fmt.Errorf("invalid payment status: %s", s)
}

type PaymentMethod string

const (
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodDebitCard    PaymentMethod = "DEBIT_CARD"
	MethodPix          PaymentMethod = "PIX"
	MethodBoleto       PaymentMethod = "BOLETO"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

type Payment struct {
	ID              int64           `json:"id"`
	PaymentID       string          `json:"payment_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerEmail   string          `json:"customer_email"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Status          PaymentStatus   `json:"status"`
	Gateway         string          `json:"gateway"`
	Description     string          `json:"description"`
	GatewayResponse string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

type CreatePaymentRequest struct {
	CustomerID    string          `json:"customer_id" binding:"required"`
	CustomerEmail string          `json:"customer_email" binding:"required,email"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency" binding:"omitempty,oneof=BRL USD EUR"`
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required,oneof=CREDIT_CARD DEBIT_CARD PIX BOLETO BANK_TRANSFER"`
	PaymentToken  string          `json:"payment_token" binding:"required"`
	Description   string          `json:"description"`
	Gateway       string          `json:"gateway" binding:"omitempty,oneof=STRIPE PAGSEGURO"`
}

// ApplyDefaults fills the optional enum fields the way the API contract
// defines them: BRL and STRIPE.
func (r *CreatePaymentRequest) ApplyDefaults() {
	if r.Currency == "" {
		r.Currency = "BRL"
	}
	if r.Gateway == "" {
		r.Gateway = "STRIPE"
	}
}

type RefundRequest struct {
	PaymentID string          `json:"payment_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason"`
}

type PaymentResponse struct {
	ID            int64           `json:"id"`
	PaymentID     string          `json:"payment_id"`
	CustomerID    string          `json:"customer_id"`
	CustomerEmail string          `json:"customer_email"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        PaymentStatus   `json:"status"`
	Gateway       string          `json:"gateway"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToResponse strips the audit fields (gateway response, update timestamps)
// from the external representation.
func (p *Payment) ToResponse() PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		PaymentID:     p.PaymentID,
		CustomerID:    p.CustomerID,
		CustomerEmail: p.CustomerEmail,
		Amount:        p.Amount,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
		Status:        p.Status,
		Gateway:       p.Gateway,
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
	}
}

type PaymentStatistics struct {
	TotalAmount        decimal.Decimal `json:"total_amount"`
	SuccessfulPayments int64           `json:"successful_payments"`
	FailedPayments     int64           `json:"failed_payments"`
	TotalTransactions  int64           `json:"total_transactions"`
}
