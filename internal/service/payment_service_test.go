package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/gateway"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/interfaces"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
)

type fakeRepo struct {
	payments []*models.Payment
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1}
}

func (r *fakeRepo) Create(_ context.Context, payment *models.Payment) error {
	payment.ID = r.nextID
	r.nextID++
	payment.CreatedAt = time.Now()
	stored := *payment
	r.payments = append(r.payments, &stored)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*models.Payment, error) {
	for _, p := range r.payments {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeRepo) GetByPaymentID(_ context.Context, paymentID string) (*models.Payment, error) {
	for _, p := range r.payments {
		if p.PaymentID == paymentID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeRepo) GetByCustomerID(_ context.Context, customerID string) ([]models.Payment, error) {
	var result []models.Payment
	for _, p := range r.payments {
		if p.CustomerID == customerID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeRepo) GetByStatus(_ context.Context, status models.PaymentStatus) ([]models.Payment, error) {
	var result []models.Payment
	for _, p := range r.payments {
		if p.Status == status {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeRepo) GetAll(_ context.Context) ([]models.Payment, error) {
	var result []models.Payment
	for _, p := range r.payments {
		result = append(result, *p)
	}
	return result, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, paymentID string, status models.PaymentStatus) error {
	for _, p := range r.payments {
		if p.PaymentID == paymentID {
			p.Status = status
			now := time.Now()
			p.UpdatedAt = &now
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (r *fakeRepo) CreateRefund(ctx context.Context, originalPaymentID string, refund *models.Payment) error {
	for _, p := range r.payments {
		if p.PaymentID == originalPaymentID {
			if p.Status != models.StatusSuccess {
				return interfaces.ErrStatusConflict
			}
			p.Status = models.StatusRefunded
			now := time.Now()
			p.UpdatedAt = &now
			return r.Create(ctx, refund)
		}
	}
	return interfaces.ErrStatusConflict
}

type fakeGateway struct {
	name       string
	processFn  func(req *models.CreatePaymentRequest) (*models.Payment, error)
	refundFn   func(paymentID string, amount decimal.Decimal) (*models.Payment, error)
	refundLogs int
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) ProcessPayment(_ context.Context, req *models.CreatePaymentRequest) (*models.Payment, error) {
	if g.processFn != nil {
		return g.processFn(req)
	}
	return &models.Payment{
		PaymentID:     "ch_test_123",
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Gateway:       g.name,
		Status:        models.StatusSuccess,
	}, nil
}

func (g *fakeGateway) GetPaymentStatus(_ context.Context, paymentID string) (*models.Payment, error) {
	return &models.Payment{PaymentID: paymentID, Status: models.StatusSuccess}, nil
}

func (g *fakeGateway) RefundPayment(_ context.Context, paymentID string, amount decimal.Decimal, _ string) (*models.Payment, error) {
	g.refundLogs++
	if g.refundFn != nil {
		return g.refundFn(paymentID, amount)
	}
	return &models.Payment{
		PaymentID:       paymentID,
		Status:          models.StatusRefunded,
		GatewayResponse: `{"id":"re_test_123"}`,
	}, nil
}

func (g *fakeGateway) GenerateToken(_ context.Context, _ *models.CreatePaymentRequest) (string, error) {
	return "tok_test", nil
}

func newTestService(repo *fakeRepo, gw gateway.Gateway) *PaymentService {
	return NewPaymentService(repo, gateway.NewRegistry(gw), nil)
}

func validRequest() *models.CreatePaymentRequest {
	return &models.CreatePaymentRequest{
		CustomerID:    "cust-1",
		CustomerEmail: "cust@example.com",
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "BRL",
		PaymentMethod: models.MethodCreditCard,
		PaymentToken:  "tok_valid",
		Gateway:       "STRIPE",
	}
}

func TestProcessPayment_Success(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeGateway{name: "STRIPE"})

	payment, err := svc.ProcessPayment(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, payment.PaymentID)
	assert.Equal(t, models.StatusSuccess, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.NotZero(t, payment.ID)

	stored, err := repo.GetByPaymentID(context.Background(), payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, stored.ID)
}

func TestProcessPayment_GatewayFailureBecomesFailedRecord(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{
		name: "STRIPE",
		processFn: func(req *models.CreatePaymentRequest) (*models.Payment, error) {
			// Soft-fail: the adapter converts transport errors into records.
			return &models.Payment{
				PaymentID:       fmt.Sprintf("error_%d", time.Now().UnixMilli()),
				CustomerID:      req.CustomerID,
				CustomerEmail:   req.CustomerEmail,
				Amount:          req.Amount,
				Currency:        req.Currency,
				PaymentMethod:   req.PaymentMethod,
				Gateway:         "STRIPE",
				Status:          models.StatusFailed,
				GatewayResponse: "Stripe Error: connection refused",
			}, nil
		},
	}
	svc := newTestService(repo, gw)

	payment, err := svc.ProcessPayment(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, payment.Status)
	assert.Contains(t, payment.PaymentID, "error_")
	assert.NotZero(t, payment.ID)
}

func TestProcessPayment_NeverReturnsPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeGateway{name: "STRIPE"})

	payment, err := svc.ProcessPayment(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Contains(t, []models.PaymentStatus{models.StatusSuccess, models.StatusFailed}, payment.Status)
}

func TestProcessPayment_UnsupportedGateway(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGateway{name: "STRIPE"})

	req := validRequest()
	req.Gateway = "PAGSEGURO"

	_, err := svc.ProcessPayment(context.Background(), req)
	assert.ErrorIs(t, err, gateway.ErrUnsupportedGateway)
}

func TestProcessPayment_GatewayNameCaseInsensitive(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGateway{name: "STRIPE"})

	req := validRequest()
	req.Gateway = "stripe"

	payment, err := svc.ProcessPayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, payment.Status)
}

func TestProcessPayment_AppliesDefaults(t *testing.T) {
	var seen *models.CreatePaymentRequest
	gw := &fakeGateway{
		name: "STRIPE",
		processFn: func(req *models.CreatePaymentRequest) (*models.Payment, error) {
			seen = req
			return &models.Payment{PaymentID: "ch_1", Status: models.StatusSuccess, Gateway: "STRIPE"}, nil
		},
	}
	svc := newTestService(newFakeRepo(), gw)

	req := validRequest()
	req.Currency = ""
	req.Gateway = ""

	_, err := svc.ProcessPayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "BRL", seen.Currency)
	assert.Equal(t, "STRIPE", seen.Gateway)
}

func seedPayment(t *testing.T, repo *fakeRepo, status models.PaymentStatus) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		PaymentID:     "ch_orig",
		CustomerID:    "cust-1",
		CustomerEmail: "cust@example.com",
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "BRL",
		PaymentMethod: models.MethodCreditCard,
		Gateway:       "STRIPE",
		Status:        status,
	}
	require.NoError(t, repo.Create(context.Background(), payment))
	return payment
}

func TestRefundPayment_Success(t *testing.T) {
	repo := newFakeRepo()
	seedPayment(t, repo, models.StatusSuccess)
	svc := newTestService(repo, &fakeGateway{name: "STRIPE"})

	refund, err := svc.RefundPayment(context.Background(), &models.RefundRequest{
		PaymentID: "ch_orig",
		Amount:    decimal.RequireFromString("100.00"),
		Reason:    "customer request",
	})
	require.NoError(t, err)

	assert.Equal(t, "ch_orig_refund", refund.PaymentID)
	assert.Equal(t, models.StatusRefunded, refund.Status)
	assert.True(t, refund.Amount.Equal(decimal.RequireFromString("-100.00")))
	assert.Equal(t, "Refund: customer request", refund.Description)

	original, err := repo.GetByPaymentID(context.Background(), "ch_orig")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, original.Status)

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRefundPayment_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGateway{name: "STRIPE"})

	_, err := svc.RefundPayment(context.Background(), &models.RefundRequest{
		PaymentID: "ch_missing",
		Amount:    decimal.RequireFromString("10.00"),
	})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestRefundPayment_RejectsNonSuccessStatus(t *testing.T) {
	for _, status := range []models.PaymentStatus{
		models.StatusPending, models.StatusFailed, models.StatusRefunded, models.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			repo := newFakeRepo()
			seedPayment(t, repo, status)
			gw := &fakeGateway{name: "STRIPE"}
			svc := newTestService(repo, gw)

			_, err := svc.RefundPayment(context.Background(), &models.RefundRequest{
				PaymentID: "ch_orig",
				Amount:    decimal.RequireFromString("100.00"),
			})
			assert.ErrorIs(t, err, ErrNotRefundable)
			assert.Zero(t, gw.refundLogs, "gateway must not be called")

			original, getErr := repo.GetByPaymentID(context.Background(), "ch_orig")
			require.NoError(t, getErr)
			assert.Equal(t, status, original.Status)

			all, _ := repo.GetAll(context.Background())
			assert.Len(t, all, 1, "no refund record may be created")
		})
	}
}

func TestRefundPayment_GatewayFailureLeavesStateUntouched(t *testing.T) {
	repo := newFakeRepo()
	seedPayment(t, repo, models.StatusSuccess)
	gw := &fakeGateway{
		name: "STRIPE",
		refundFn: func(string, decimal.Decimal) (*models.Payment, error) {
			return nil, errors.New("stripe API returned HTTP 500")
		},
	}
	svc := newTestService(repo, gw)

	_, err := svc.RefundPayment(context.Background(), &models.RefundRequest{
		PaymentID: "ch_orig",
		Amount:    decimal.RequireFromString("100.00"),
	})
	assert.ErrorIs(t, err, ErrGatewayRefund)

	original, getErr := repo.GetByPaymentID(context.Background(), "ch_orig")
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusSuccess, original.Status)

	all, _ := repo.GetAll(context.Background())
	assert.Len(t, all, 1)
}

func TestRefundPayment_ConcurrentRefundConflict(t *testing.T) {
	repo := newFakeRepo()
	seedPayment(t, repo, models.StatusSuccess)
	svc := newTestService(repo, &fakeGateway{name: "STRIPE"})

	// Flip the record after the status check would have passed by refunding
	// once, then try again.
	_, err := svc.RefundPayment(context.Background(), &models.RefundRequest{
		PaymentID: "ch_orig",
		Amount:    decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	_, err = svc.RefundPayment(context.Background(), &models.RefundRequest{
		PaymentID: "ch_orig",
		Amount:    decimal.RequireFromString("100.00"),
	})
	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestGetPaymentsByStatus(t *testing.T) {
	repo := newFakeRepo()
	seedPayment(t, repo, models.StatusSuccess)
	svc := newTestService(repo, &fakeGateway{name: "STRIPE"})

	payments, err := svc.GetPaymentsByStatus(context.Background(), "success")
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	payments, err = svc.GetPaymentsByStatus(context.Background(), "FAILED")
	require.NoError(t, err)
	assert.Empty(t, payments)

	_, err = svc.GetPaymentsByStatus(context.Background(), "NOT_A_STATUS")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGetPaymentStatistics(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeGateway{name: "STRIPE"})

	add := func(paymentID string, amount string, status models.PaymentStatus) {
		require.NoError(t, repo.Create(context.Background(), &models.Payment{
			PaymentID: paymentID,
			Amount:    decimal.RequireFromString(amount),
			Status:    status,
		}))
	}
	add("ch_1", "100.00", models.StatusSuccess)
	add("ch_2", "50.50", models.StatusSuccess)
	add("ch_3", "10.00", models.StatusFailed)
	add("ch_4", "-25.00", models.StatusRefunded)

	stats, err := svc.GetPaymentStatistics(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.TotalAmount.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, int64(2), stats.SuccessfulPayments)
	assert.Equal(t, int64(1), stats.FailedPayments)
	assert.Equal(t, int64(4), stats.TotalTransactions)

	// Idempotent when no writes happen in between.
	again, err := svc.GetPaymentStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats, again)
}
