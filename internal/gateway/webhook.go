package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stripe rejects events whose signature timestamp is older than this.
const webhookTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing Stripe-Signature header")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// WebhookEvent is the envelope Stripe posts to the webhook endpoint.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ObjectID extracts the id of the event's payload object (a charge or
// payment intent id).
func (e *WebhookEvent) ObjectID() string {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return ""
	}
	return obj.ID
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the
// shared secret and parses the event. The signature scheme is Stripe's v1:
// HMAC-SHA256 over "<timestamp>.<payload>".
func ConstructWebhookEvent(payload []byte, sigHeader, secret string) (*WebhookEvent, error) {
	if err := verifySignature(payload, sigHeader, secret, time.Now()); err != nil {
		return nil, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	return &event, nil
}

func verifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	if sigHeader == "" {
		return ErrMissingSignature
	}

	var timestamp int64
	var signatures [][]byte

	for _, pair := range strings.Split(sigHeader, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	if now.Sub(time.Unix(timestamp, 0)) > webhookTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrInvalidSignature
}
