package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/telemetry"
)

const stripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeGateway talks to the Stripe API over HTTP. All charge and refund
// logic lives on the Stripe side; this adapter only maps requests and
// responses onto Payment records.
type StripeGateway struct {
	httpClient *http.Client
	apiBaseURL string
	secretKey  string
}

func NewStripeGateway(secretKey string, client *http.Client) *StripeGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &StripeGateway{
		httpClient: client,
		apiBaseURL: stripeAPIBaseURL,
		secretKey:  secretKey,
	}
}

func (s *StripeGateway) Name() string {
	return "STRIPE"
}

type stripeCharge struct {
	ID      string `json:"id"`
	Paid    bool   `json:"paid"`
	Status  string `json:"status"`
	Created int64  `json:"created"`
}

type stripeRefund struct {
	ID     string `json:"id"`
	Charge string `json:"charge"`
	Status string `json:"status"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ProcessPayment submits a charge. Provider declines and transport failures
// both come back as a FAILED Payment rather than an error; the failure
// record gets a locally generated payment id so it can always be persisted.
func (s *StripeGateway) ProcessPayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.Payment, error) {
	if s.secretKey == "" {
		return nil, errors.New("stripe: secret key not configured")
	}

	telemetry.Logger.Info("Processing payment via Stripe",
		zap.String("customer_email", req.CustomerEmail),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
	)

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(toMinorUnits(req.Amount), 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("source", req.PaymentToken)
	form.Set("description", req.Description)
	form.Set("metadata[customer_id]", req.CustomerID)
	form.Set("metadata[customer_email]", req.CustomerEmail)

	body, err := s.post(ctx, "/charges", form)
	if err != nil {
		telemetry.Logger.Error("Stripe charge failed", zap.Error(err))
		return s.failedPayment(req, err), nil
	}

	var charge stripeCharge
	if err := json.Unmarshal(body, &charge); err != nil {
		telemetry.Logger.Error("Failed to decode Stripe charge", zap.Error(err))
		return s.failedPayment(req, err), nil
	}

	payment := &models.Payment{
		PaymentID:       charge.ID,
		CustomerID:      req.CustomerID,
		CustomerEmail:   req.CustomerEmail,
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethod:   req.PaymentMethod,
		Gateway:         s.Name(),
		Description:     req.Description,
		GatewayResponse: string(body),
	}

	if charge.Paid {
		payment.Status = models.StatusSuccess
		processedAt := time.Unix(charge.Created, 0)
		payment.ProcessedAt = &processedAt
		telemetry.Logger.Info("Charge succeeded", zap.String("charge_id", charge.ID))
	} else {
		payment.Status = models.StatusFailed
		telemetry.Logger.Warn("Charge not paid", zap.String("charge_id", charge.ID))
	}

	return payment, nil
}

func (s *StripeGateway) GetPaymentStatus(ctx context.Context, paymentID string) (*models.Payment, error) {
	body, err := s.get(ctx, "/charges/"+paymentID)
	if err != nil {
		return nil, fmt.Errorf("stripe: fetch charge %s: %w", paymentID, err)
	}

	var charge stripeCharge
	if err := json.Unmarshal(body, &charge); err != nil {
		return nil, fmt.Errorf("stripe: decode charge %s: %w", paymentID, err)
	}

	payment := &models.Payment{
		PaymentID:       charge.ID,
		Gateway:         s.Name(),
		GatewayResponse: string(body),
		Status:          models.StatusFailed,
	}
	if charge.Paid {
		payment.Status = models.StatusSuccess
	}
	return payment, nil
}

func (s *StripeGateway) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*models.Payment, error) {
	telemetry.Logger.Info("Processing refund via Stripe", zap.String("charge_id", paymentID))

	if reason == "" {
		reason = "Requested by customer"
	}

	form := url.Values{}
	form.Set("charge", paymentID)
	form.Set("amount", strconv.FormatInt(toMinorUnits(amount), 10))
	form.Set("reason", "requested_by_customer")
	form.Set("metadata[reason]", reason)

	body, err := s.post(ctx, "/refunds", form)
	if err != nil {
		return nil, fmt.Errorf("stripe: refund charge %s: %w", paymentID, err)
	}

	var refund stripeRefund
	if err := json.Unmarshal(body, &refund); err != nil {
		return nil, fmt.Errorf("stripe: decode refund for %s: %w", paymentID, err)
	}

	telemetry.Logger.Info("Refund processed", zap.String("refund_id", refund.ID))

	return &models.Payment{
		PaymentID:       refund.Charge,
		Gateway:         s.Name(),
		Status:          models.StatusRefunded,
		GatewayResponse: string(body),
	}, nil
}

// GenerateToken synthesizes a test token locally. Real card tokenization
// must happen client side; raw card data never reaches this service.
func (s *StripeGateway) GenerateToken(ctx context.Context, req *models.CreatePaymentRequest) (string, error) {
	token := fmt.Sprintf("tok_%d", time.Now().UnixMilli())
	telemetry.Logger.Info("Generated test token", zap.String("token", token))
	return token, nil
}

func (s *StripeGateway) failedPayment(req *models.CreatePaymentRequest, cause error) *models.Payment {
	return &models.Payment{
		// Timestamp based id: unique even without provider confirmation.
		PaymentID:       fmt.Sprintf("error_%d", time.Now().UnixMilli()),
		CustomerID:      req.CustomerID,
		CustomerEmail:   req.CustomerEmail,
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethod:   req.PaymentMethod,
		Gateway:         s.Name(),
		Description:     req.Description,
		Status:          models.StatusFailed,
		GatewayResponse: "Stripe Error: " + cause.Error(),
	}
}

func (s *StripeGateway) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.apiBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *StripeGateway) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	return s.do(req)
}

func (s *StripeGateway) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr stripeError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe API error (%s): %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe API returned HTTP %d", resp.StatusCode)
	}

	return body, nil
}

// toMinorUnits converts a decimal amount to the smallest currency unit,
// truncating. Assumes every supported currency has 2 decimal places; a
// per-currency table is needed before adding zero-decimal currencies.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
