package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/models"
	"bitbucket.org/cargolink/backend/processors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	squareSigningKey      = "square-signing-key"
	squareNotificationURL = "https://api.cargolink.example/payment/webhook/square"
	stripeWebhookSecret   = "whsec_test_secret"
)

func seedPayment(store *fakeStorage, paymentID string, transactionID string, statusID int) {
	store.payments[paymentID] = &models.Payment{
		ID:            paymentID,
		User:          &models.User{ID: 7},
		Method:        db.PaymentMethodByID(db.ConstPaymentMethods.Card.ID),
		Status:        paymentStatusByID(statusID),
		Amount:        5000,
		Currency:      "USD",
		TransactionID: transactionID,
		Metadata:      models.Metadata{},
	}
}

func squareContext(store *fakeStorage) *config.AppContext {
	return &config.AppContext{
		DB: store,
		Square: &processors.SquareClient{
			SignatureKey:    squareSigningKey,
			NotificationURL: squareNotificationURL,
		},
	}
}

func squareWebhookSignature(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(squareNotificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func squareEventBody(eventID string, paymentID string, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"merchant_id":"m_1","event_id":%q,"type":"payment.updated","data":{"type":"payment","id":%q,"object":{"payment":{"id":%q,"status":%q,"receipt_url":"https://sq.example/r/1"}}}}`,
		eventID, paymentID, paymentID, status))
}

func deliverSquareWebhook(ctx *config.AppContext, body []byte, signature string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/payment/webhook/square", bytes.NewReader(body))
	if signature != "" {
		r.Header.Set("X-Square-Hmacsha256-Signature", signature)
	}
	recorder, w := newResponse()
	UpdatePaymentSquare(ctx, w, r)
	return recorder
}

func TestSquareWebhookCompletesPayment(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "sqp_1", db.ConstPaymentStatuses.Pending.ID)
	ctx := squareContext(store)

	body := squareEventBody("ev_1", "sqp_1", "COMPLETED")
	recorder := deliverSquareWebhook(ctx, body, squareWebhookSignature(squareSigningKey, body))

	assert.Equal(t, http.StatusOK, recorder.Code)

	payment, err := store.GetPaymentByID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, db.ConstPaymentStatuses.Completed.ID, payment.Status.ID)
	require.NotNil(t, payment.PaidAt, "a completed payment carries its paid-at timestamp")
	assert.Equal(t, "ev_1", payment.Metadata["square_event_id"])
	assert.Equal(t, "COMPLETED", payment.Metadata["square_status"])
	assert.Equal(t, "https://sq.example/r/1", payment.Metadata["receipt_url"])
	assert.Equal(t, 1, store.updateCount())
}

func TestSquareWebhookDuplicateDelivery(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "sqp_1", db.ConstPaymentStatuses.Pending.ID)
	ctx := squareContext(store)

	body := squareEventBody("ev_1", "sqp_1", "COMPLETED")
	signature := squareWebhookSignature(squareSigningKey, body)

	first := deliverSquareWebhook(ctx, body, signature)
	assert.Equal(t, http.StatusOK, first.Code)
	paidAfterFirst, _ := store.GetPaymentByID("pay-1")

	second := deliverSquareWebhook(ctx, body, signature)
	assert.Equal(t, http.StatusOK, second.Code)

	payment, err := store.GetPaymentByID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, db.ConstPaymentStatuses.Completed.ID, payment.Status.ID)
	assert.True(t, payment.PaidAt.Equal(*paidAfterFirst.PaidAt), "a redelivered event must not move paid-at")
	assert.Equal(t, 1, store.updateCount(), "a redelivered event must not write")
}

func TestSquareWebhookCompletedNeverRegresses(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "sqp_1", db.ConstPaymentStatuses.Pending.ID)
	ctx := squareContext(store)

	completed := squareEventBody("ev_1", "sqp_1", "COMPLETED")
	deliverSquareWebhook(ctx, completed, squareWebhookSignature(squareSigningKey, completed))
	paidAfterFirst, _ := store.GetPaymentByID("pay-1")

	// A delayed delivery of an earlier, superseded state.
	pending := squareEventBody("ev_2", "sqp_1", "PENDING")
	recorder := deliverSquareWebhook(ctx, pending, squareWebhookSignature(squareSigningKey, pending))
	assert.Equal(t, http.StatusOK, recorder.Code)

	payment, err := store.GetPaymentByID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, db.ConstPaymentStatuses.Completed.ID, payment.Status.ID, "a terminal status never regresses")
	require.NotNil(t, payment.PaidAt)
	assert.True(t, payment.PaidAt.Equal(*paidAfterFirst.PaidAt))
	assert.Equal(t, "ev_2", payment.Metadata["square_event_id"], "late reports still contribute metadata")
}

func TestSquareWebhookBadSignature(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "sqp_1", db.ConstPaymentStatuses.Pending.ID)
	ctx := squareContext(store)

	body := squareEventBody("ev_1", "sqp_1", "COMPLETED")
	recorder := deliverSquareWebhook(ctx, body, squareWebhookSignature("wrong-key", body))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 0, store.updateCount())

	payment, _ := store.GetPaymentByID("pay-1")
	assert.Equal(t, db.ConstPaymentStatuses.Pending.ID, payment.Status.ID)
}

func TestSquareWebhookMissingSignature(t *testing.T) {
	store := newFakeStorage()
	ctx := squareContext(store)

	recorder := deliverSquareWebhook(ctx, squareEventBody("ev_1", "sqp_1", "COMPLETED"), "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 0, store.updateCount())
}

func TestSquareWebhookUnconfiguredKey(t *testing.T) {
	store := newFakeStorage()
	ctx := &config.AppContext{DB: store, Square: &processors.SquareClient{}}

	body := squareEventBody("ev_1", "sqp_1", "COMPLETED")
	recorder := deliverSquareWebhook(ctx, body, "any-signature")

	assert.Equal(t, http.StatusInternalServerError, recorder.Code, "a missing key is a configuration error, never a valid signature")
	assert.Equal(t, 0, store.updateCount())
}

func TestSquareWebhookUnknownTransaction(t *testing.T) {
	store := newFakeStorage()
	ctx := squareContext(store)

	body := squareEventBody("ev_1", "sqp_missing", "COMPLETED")
	recorder := deliverSquareWebhook(ctx, body, squareWebhookSignature(squareSigningKey, body))

	assert.Equal(t, http.StatusOK, recorder.Code, "unknown transactions are acknowledged, not retried forever")
	assert.Equal(t, 0, store.updateCount())
}

func TestSquareWebhookIgnoredEventType(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "sqp_1", db.ConstPaymentStatuses.Pending.ID)
	ctx := squareContext(store)

	body := []byte(`{"merchant_id":"m_1","event_id":"ev_1","type":"refund.created","data":{}}`)
	recorder := deliverSquareWebhook(ctx, body, squareWebhookSignature(squareSigningKey, body))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 0, store.updateCount())
}

func stripeContext(store *fakeStorage, webhookSecret string) *config.AppContext {
	return &config.AppContext{
		DB: store,
		Stripe: processors.NewStripeClient(processors.StripeConfig{
			SecretKey:     "sk_test_123",
			WebhookSecret: webhookSecret,
		}),
	}
}

func stripeWebhookSignature(secret string, body []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func stripeEventBody(eventID string, eventType string, intentID string, nativeStatus string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"object":{"id":%q,"object":"payment_intent","status":%q}}}`,
		eventID, eventType, intentID, nativeStatus))
}

func deliverStripeWebhook(ctx *config.AppContext, body []byte, signature string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/payment/webhook/stripe", bytes.NewReader(body))
	if signature != "" {
		r.Header.Set("Stripe-Signature", signature)
	}
	recorder, w := newResponse()
	UpdatePaymentStripe(ctx, w, r)
	return recorder
}

func TestStripeWebhookCompletesPayment(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "pi_123", db.ConstPaymentStatuses.Pending.ID)
	ctx := stripeContext(store, stripeWebhookSecret)

	body := stripeEventBody("evt_1", "payment_intent.succeeded", "pi_123", "succeeded")
	recorder := deliverStripeWebhook(ctx, body, stripeWebhookSignature(stripeWebhookSecret, body))

	assert.Equal(t, http.StatusOK, recorder.Code)

	payment, err := store.GetPaymentByID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, db.ConstPaymentStatuses.Completed.ID, payment.Status.ID)
	require.NotNil(t, payment.PaidAt)
	assert.Equal(t, "evt_1", payment.Metadata["stripe_event_id"])
	assert.Equal(t, "payment_intent.succeeded", payment.Metadata["stripe_event_type"])
	assert.Equal(t, "succeeded", payment.Metadata["stripe_status"])
}

func TestStripeWebhookFailedEvent(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "pi_123", db.ConstPaymentStatuses.Pending.ID)
	ctx := stripeContext(store, stripeWebhookSecret)

	body := stripeEventBody("evt_1", "payment_intent.payment_failed", "pi_123", "requires_payment_method")
	recorder := deliverStripeWebhook(ctx, body, stripeWebhookSignature(stripeWebhookSecret, body))

	assert.Equal(t, http.StatusOK, recorder.Code)

	payment, err := store.GetPaymentByID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, db.ConstPaymentStatuses.Failed.ID, payment.Status.ID)
	assert.Nil(t, payment.PaidAt, "paid-at is set exactly when the payment completes")
}

func TestStripeWebhookBadSignature(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "pi_123", db.ConstPaymentStatuses.Pending.ID)
	ctx := stripeContext(store, stripeWebhookSecret)

	body := stripeEventBody("evt_1", "payment_intent.succeeded", "pi_123", "succeeded")
	recorder := deliverStripeWebhook(ctx, body, stripeWebhookSignature("whsec_wrong", body))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 0, store.updateCount())
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	store := newFakeStorage()
	ctx := stripeContext(store, stripeWebhookSecret)

	body := stripeEventBody("evt_1", "payment_intent.succeeded", "pi_123", "succeeded")
	recorder := deliverStripeWebhook(ctx, body, "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 0, store.updateCount())
}

func TestStripeWebhookUnconfiguredSecret(t *testing.T) {
	store := newFakeStorage()
	ctx := stripeContext(store, "")

	body := stripeEventBody("evt_1", "payment_intent.succeeded", "pi_123", "succeeded")
	recorder := deliverStripeWebhook(ctx, body, stripeWebhookSignature(stripeWebhookSecret, body))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code, "a missing secret is a configuration error, never a valid signature")
	assert.Equal(t, 0, store.updateCount())
}

func TestStripeWebhookIgnoredEventType(t *testing.T) {
	store := newFakeStorage()
	seedPayment(store, "pay-1", "pi_123", db.ConstPaymentStatuses.Pending.ID)
	ctx := stripeContext(store, stripeWebhookSecret)

	body := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	recorder := deliverStripeWebhook(ctx, body, stripeWebhookSignature(stripeWebhookSecret, body))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 0, store.updateCount())
}
