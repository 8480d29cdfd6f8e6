package processors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeCreateIntent(t *testing.T) {
	var capturedKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		capturedKey = r.Header.Get("Idempotency-Key")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "pi_123",
			"client_secret": "pi_123_secret_abc",
			"status":        "requires_payment_method",
		})
	}))
	defer server.Close()

	sc := NewStripeClient(StripeConfig{
		SecretKey: "sk_test_123",
		BaseURL:   server.URL,
	})

	intent, err := sc.CreateIntent("pay-123", 5000, "usd", "freight payment")
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, "requires_payment_method", intent.Status)
	assert.Equal(t, "pay-123", capturedKey, "the local payment id is the idempotency key")
}

func TestStripeCreateIntentUnconfigured(t *testing.T) {
	sc := NewStripeClient(StripeConfig{})

	_, err := sc.CreateIntent("pay-123", 5000, "usd", "")
	assert.Equal(t, ErrNotConfigured, err)
}

func TestStripeVerifyWebhookUnconfigured(t *testing.T) {
	sc := NewStripeClient(StripeConfig{SecretKey: "sk_test_123"})

	_, err := sc.VerifyWebhook([]byte(`{}`), "t=1,v1=abc")
	assert.Equal(t, ErrNotConfigured, err, "a missing key is a configuration error, never a valid signature")
}

func TestMapStripeEventType(t *testing.T) {
	tests := []struct {
		eventType string
		expected  string
		ok        bool
	}{
		{"payment_intent.created", StatusPending, true},
		{"payment_intent.processing", StatusPending, true},
		{"payment_intent.requires_action", StatusPending, true},
		{"payment_intent.succeeded", StatusCompleted, true},
		{"payment_intent.payment_failed", StatusFailed, true},
		{"payment_intent.canceled", StatusFailed, true},
		{"charge.refunded", "", false},
		{"customer.created", "", false},
	}

	for _, test := range tests {
		status, ok := MapStripeEventType(test.eventType)
		assert.Equal(t, test.ok, ok, test.eventType)
		assert.Equal(t, test.expected, status, test.eventType)
	}
}
