package processors

import (
	"encoding/json"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

type StripeClient struct {
	api           *client.API
	webhookSecret string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// BaseURL overrides the API host, for tests.
	BaseURL string
}

func NewStripeClient(conf StripeConfig) *StripeClient {
	sc := &StripeClient{
		webhookSecret: conf.WebhookSecret,
	}

	if conf.SecretKey == "" {
		return sc
	}

	var backends *stripe.Backends
	if conf.BaseURL != "" {
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				URL: stripe.String(conf.BaseURL),
			}),
		}
	}

	sc.api = client.New(conf.SecretKey, backends)
	return sc
}

type StripeIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// CreateIntent registers transaction intent with Stripe before any money
// moves. idempotencyKey is the local payment id, so a retried creation cannot
// produce a second remote intent.
func (sc *StripeClient) CreateIntent(idempotencyKey string, amount int64, currency string, description string) (*StripeIntent, error) {
	if sc.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
	}
	if description != "" {
		params.Description = stripe.String(description)
	}
	params.SetIdempotencyKey(idempotencyKey)

	intent, err := sc.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}

	return &StripeIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

// VerifyWebhook checks the signature header against the raw, unparsed body.
// The body bytes must be exactly what came off the wire.
func (sc *StripeClient) VerifyWebhook(body []byte, signatureHeader string) (*stripe.Event, error) {
	if sc.webhookSecret == "" {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEvent(body, signatureHeader, sc.webhookSecret)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	return &event, nil
}

type StripeWebhookPayment struct {
	EventID       string
	EventType     string
	TransactionID string
	Status        string
	NativeStatus  string
}

// ParseWebhookPayment extracts the payment intent carried by a verified
// event. A false return means the event is not about a payment intent and
// must be acknowledged without effect.
func (sc *StripeClient) ParseWebhookPayment(event *stripe.Event) (*StripeWebhookPayment, bool) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, false
	}

	if intent.ID == "" {
		return nil, false
	}

	status, ok := MapStripeEventType(string(event.Type))
	if !ok {
		return nil, false
	}

	return &StripeWebhookPayment{
		EventID:       event.ID,
		EventType:     string(event.Type),
		TransactionID: intent.ID,
		Status:        status,
		NativeStatus:  string(intent.Status),
	}, true
}

// MapStripeEventType translates Stripe's event vocabulary into the local
// three-state one. Canceled counts as failed.
func MapStripeEventType(eventType string) (string, bool) {
	switch eventType {
	case "payment_intent.created", "payment_intent.processing", "payment_intent.requires_action":
		return StatusPending, true
	case "payment_intent.succeeded":
		return StatusCompleted, true
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return StatusFailed, true
	}
	return "", false
}
