package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/telemetry"
)

// Publisher emits payment lifecycle events. Publishing is best effort;
// failures are logged by the caller and never fail the request.
type Publisher interface {
	PublishPaymentEvent(ctx context.Context, eventType string, payment *models.Payment) error
	Close() error
}

const (
	EventPaymentProcessed = "payment.processed"
	EventPaymentRefunded  = "payment.refunded"
)

type paymentEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	PaymentID  string    `json:"payment_id"`
	CustomerID string    `json:"customer_id"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	Gateway    string    `json:"gateway"`
	Timestamp  time.Time `json:"timestamp"`
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Topic:    "payment.events",
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) PublishPaymentEvent(ctx context.Context, eventType string, payment *models.Payment) error {
	event := paymentEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		PaymentID:  payment.PaymentID,
		CustomerID: payment.CustomerID,
		Amount:     payment.Amount.String(),
		Currency:   payment.Currency,
		Status:     string(payment.Status),
		Gateway:    payment.Gateway,
		Timestamp:  time.Now(),
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payment.PaymentID),
		Value: eventJSON,
	}); err != nil {
		return err
	}

	telemetry.Logger.Info("Published payment event",
		zap.String("event_type", eventType),
		zap.String("payment_id", payment.PaymentID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
