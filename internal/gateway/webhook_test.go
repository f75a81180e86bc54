package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructWebhookEvent_ValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"ch_abc123"}}}`)
	header := signPayload(payload, testWebhookSecret, time.Now())

	event, err := ConstructWebhookEvent(payload, header, testWebhookSecret)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "payment_intent.succeeded", event.Type)
	assert.Equal(t, "ch_abc123", event.ObjectID())
}

func TestConstructWebhookEvent_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"ch_abc123"}}}`)
	header := signPayload(payload, testWebhookSecret, time.Now())

	tampered := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"ch_evil"}}}`)
	_, err := ConstructWebhookEvent(tampered, header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructWebhookEvent_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`)
	header := signPayload(payload, "whsec_other", time.Now())

	_, err := ConstructWebhookEvent(payload, header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructWebhookEvent_MissingHeader(t *testing.T) {
	_, err := ConstructWebhookEvent([]byte(`{}`), "", testWebhookSecret)
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestConstructWebhookEvent_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`)
	header := signPayload(payload, testWebhookSecret, time.Now().Add(-10*time.Minute))

	_, err := ConstructWebhookEvent(payload, header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructWebhookEvent_MalformedHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	for _, header := range []string{"t=abc,v1=00", "v1=00", "t=123", "nonsense"} {
		_, err := ConstructWebhookEvent(payload, header, testWebhookSecret)
		assert.ErrorIs(t, err, ErrInvalidSignature, header)
	}
}

func TestWebhookEvent_ObjectIDMissing(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{}}}`)
	header := signPayload(payload, testWebhookSecret, time.Now())

	event, err := ConstructWebhookEvent(payload, header, testWebhookSecret)
	require.NoError(t, err)
	assert.Empty(t, event.ObjectID())
}
