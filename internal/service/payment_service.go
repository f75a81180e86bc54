package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/events"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/gateway"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/interfaces"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/telemetry"
)

var (
	// ErrNotRefundable is returned when a refund targets a payment that is
	// not (or no longer) in SUCCESS status.
	ErrNotRefundable = errors.New("only payments with SUCCESS status can be refunded")

	// ErrGatewayRefund is returned when the gateway rejects or fails the
	// refund call; no local state is mutated in that case.
	ErrGatewayRefund = errors.New("gateway refund failed")

	// ErrInvalidStatus is returned for status query strings outside the
	// enumeration.
	ErrInvalidStatus = errors.New("invalid payment status")
)

// PaymentService orchestrates gateway calls and persistence.
type PaymentService struct {
	repo      interfaces.PaymentRepository
	registry  *gateway.Registry
	publisher events.Publisher
}

func NewPaymentService(repo interfaces.PaymentRepository, registry *gateway.Registry, publisher events.Publisher) *PaymentService {
	return &PaymentService{
		repo:      repo,
		registry:  registry,
		publisher: publisher,
	}
}

// ProcessPayment resolves the gateway, submits the charge, and persists the
// outcome. A declined or failed charge is still a successful call: it comes
// back as a persisted FAILED record.
func (s *PaymentService) ProcessPayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.Payment, error) {
	req.ApplyDefaults()

	telemetry.Logger.Info("Processing payment",
		zap.String("customer_id", req.CustomerID),
		zap.String("gateway", req.Gateway),
	)

	gw, err := s.registry.Resolve(req.Gateway)
	if err != nil {
		return nil, err
	}

	payment, err := gw.ProcessPayment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", req.Gateway, err)
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to persist payment %s: %w", payment.PaymentID, err)
	}

	telemetry.Logger.Info("Payment saved",
		zap.Int64("id", payment.ID),
		zap.String("payment_id", payment.PaymentID),
		zap.String("status", string(payment.Status)),
	)
	telemetry.PaymentsProcessed.WithLabelValues(payment.Gateway, string(payment.Status)).Inc()
	s.publish(ctx, events.EventPaymentProcessed, payment)

	return payment, nil
}

func (s *PaymentService) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PaymentService) GetPaymentByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.repo.GetByPaymentID(ctx, paymentID)
}

func (s *PaymentService) GetPaymentsByCustomer(ctx context.Context, customerID string) ([]models.Payment, error) {
	return s.repo.GetByCustomerID(ctx, customerID)
}

func (s *PaymentService) GetPaymentsByStatus(ctx context.Context, status string) ([]models.Payment, error) {
	parsed, err := models.ParsePaymentStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.repo.GetByStatus(ctx, parsed)
}

// RefundPayment refunds a SUCCESS payment through its gateway. The original
// record transitions to REFUNDED and a new record with the negated amount is
// written; both writes happen in one transaction, conditional on the
// original still being SUCCESS.
func (s *PaymentService) RefundPayment(ctx context.Context, req *models.RefundRequest) (*models.Payment, error) {
	telemetry.Logger.Info("Processing refund", zap.String("payment_id", req.PaymentID))

	original, err := s.repo.GetByPaymentID(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	if original.Status != models.StatusSuccess {
		return nil, fmt.Errorf("%w: payment %s has status %s",
			ErrNotRefundable, original.PaymentID, original.Status)
	}

	gw, err := s.registry.Resolve(original.Gateway)
	if err != nil {
		return nil, err
	}

	result, err := gw.RefundPayment(ctx, original.PaymentID, req.Amount, req.Reason)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRefund, err)
	}

	refund := &models.Payment{
		PaymentID:       result.PaymentID + "_refund",
		CustomerID:      original.CustomerID,
		CustomerEmail:   original.CustomerEmail,
		Amount:          req.Amount.Neg(),
		Currency:        original.Currency,
		PaymentMethod:   original.PaymentMethod,
		Gateway:         original.Gateway,
		Description:     "Refund: " + req.Reason,
		Status:          models.StatusRefunded,
		GatewayResponse: result.GatewayResponse,
	}

	if err := s.repo.CreateRefund(ctx, original.PaymentID, refund); err != nil {
		if errors.Is(err, interfaces.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: payment %s was refunded concurrently",
				ErrNotRefundable, original.PaymentID)
		}
		return nil, fmt.Errorf("failed to persist refund for %s: %w", original.PaymentID, err)
	}

	telemetry.Logger.Info("Refund saved",
		zap.String("payment_id", refund.PaymentID),
		zap.String("amount", refund.Amount.String()),
	)
	telemetry.RefundsProcessed.Inc()
	s.publish(ctx, events.EventPaymentRefunded, refund)

	return refund, nil
}

// GetPaymentStatistics recomputes totals with a full scan. Fine at this
// scale; an aggregate query is the next step if volume grows.
func (s *PaymentService) GetPaymentStatistics(ctx context.Context) (*models.PaymentStatistics, error) {
	payments, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.PaymentStatistics{
		TotalAmount:       decimal.Zero,
		TotalTransactions: int64(len(payments)),
	}
	for _, p := range payments {
		switch p.Status {
		case models.StatusSuccess:
			stats.TotalAmount = stats.TotalAmount.Add(p.Amount)
			stats.SuccessfulPayments++
		case models.StatusFailed:
			stats.FailedPayments++
		}
	}
	return stats, nil
}

func (s *PaymentService) publish(ctx context.Context, eventType string, payment *models.Payment) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPaymentEvent(ctx, eventType, payment); err != nil {
		telemetry.Logger.Error("Failed to publish payment event",
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err),
		)
	}
}
