package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
)

var ErrUnsupportedGateway = errors.New("unsupported payment gateway")

// Gateway is the capability set a payment provider adapter implements.
//
// ProcessPayment never returns an error for a declined or failed charge;
// those outcomes come back as a FAILED Payment. An error means the call
// could not be attempted at all (e.g. missing credentials).
type Gateway interface {
	Name() string
	ProcessPayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.Payment, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*models.Payment, error)
	RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*models.Payment, error)
	GenerateToken(ctx context.Context, req *models.CreatePaymentRequest) (string, error)
}

// Registry resolves gateway names to adapters. Names are matched
// case-insensitively.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gateways {
		r.gateways[strings.ToUpper(g.Name())] = g
	}
	return r
}

func (r *Registry) Resolve(name string) (Gateway, error) {
	g, ok := r.gateways[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, name)
	}
	return g, nil
}
