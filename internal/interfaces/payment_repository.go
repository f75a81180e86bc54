package interfaces

import (
	"context"
	"errors"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
)

var (
	// ErrNotFound is returned by point lookups that match no record.
	ErrNotFound = errors.New("payment not found")

	// ErrStatusConflict is returned when a conditional status transition
	// matches no row, meaning the record left the expected status.
	ErrStatusConflict = errors.New("payment status changed concurrently")
)

// PaymentRepository defines the contract for payment data access.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error)
	GetByCustomerID(ctx context.Context, customerID string) ([]models.Payment, error)
	GetByStatus(ctx context.Context, status models.PaymentStatus) ([]models.Payment, error)
	GetAll(ctx context.Context) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error

	// CreateRefund atomically transitions the original record from SUCCESS to
	// REFUNDED and inserts the refund record. Returns ErrStatusConflict when
	// the original is no longer in SUCCESS, in which case nothing is written.
	CreateRefund(ctx context.Context, originalPaymentID string, refund *models.Payment) error
}
