package api

import (
	"io/ioutil"
	"net/http"
	"time"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/models"
	"bitbucket.org/cargolink/backend/processors"
)

// Webhook delivery is at least once and unordered relative to the synchronous
// completion path. Both handlers follow the same contract: verify the
// signature against the raw body before parsing anything, look up the local
// payment by the processor's transaction id, and acknowledge with 200 even
// when there is nothing to apply, because an error answer only makes the
// processor redeliver an event this system can never use.

// UpdatePaymentStripe handles Stripe's asynchronous payment intent events.
func UpdatePaymentStripe(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("UpdatePaymentStripe")

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed reading body")
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "missing signature")
		return
	}

	event, err := ctx.Stripe.VerifyWebhook(body, signature)
	if err == processors.ErrNotConfigured {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "stripe webhook secret is not configured")
		return
	}
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "invalid signature")
		return
	}

	report, ok := ctx.Stripe.ParseWebhookPayment(event)
	if !ok {
		w.LogInfo(map[string]interface{}{"event_type": event.Type}, "ignored event type")
		return
	}

	payment, err := ctx.DB.GetPaymentByTransactionID(report.TransactionID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payment")
		return
	}

	if payment == nil {
		// Either another system created this transaction or the local row is
		// not committed yet. Acknowledge so Stripe stops retrying.
		w.LogInfo(map[string]interface{}{"transaction_id": report.TransactionID}, "unknown transaction")
		return
	}

	updated, err := reconcilePayment(ctx, payment.ID, reconcileUpdate{
		status: statusFromProcessor(report.Status),
		paidAt: time.Now().UTC(),
		metadata: models.Metadata{
			"stripe_event_id":   report.EventID,
			"stripe_event_type": report.EventType,
			"stripe_status":     report.NativeStatus,
		},
	})
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed updating payment")
		return
	}

	w.LogInfo(map[string]interface{}{
		"payment_id": updated.ID,
		"status":     updated.Status.Name,
		"event_id":   report.EventID,
	}, "success")
}

// UpdatePaymentSquare handles Square's asynchronous payment events.
func UpdatePaymentSquare(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("UpdatePaymentSquare")

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed reading body")
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Square-Hmacsha256-Signature")
	if signature == "" {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "missing signature")
		return
	}

	err = ctx.Square.VerifySignature(body, signature)
	if err == processors.ErrNotConfigured {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "square signature key is not configured")
		return
	}
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "invalid signature")
		return
	}

	report, ok := ctx.Square.ParseWebhookPayment(body)
	if !ok {
		w.LogInfo(nil, "ignored event type")
		return
	}

	payment, err := ctx.DB.GetPaymentByTransactionID(report.TransactionID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payment")
		return
	}

	if payment == nil {
		w.LogInfo(map[string]interface{}{"transaction_id": report.TransactionID}, "unknown transaction")
		return
	}

	metadata := models.Metadata{
		"square_event_id": report.EventID,
		"square_status":   report.NativeStatus,
	}
	if report.ReceiptURL != "" {
		metadata["receipt_url"] = report.ReceiptURL
	}

	updated, err := reconcilePayment(ctx, payment.ID, reconcileUpdate{
		status:   statusFromProcessor(report.Status),
		paidAt:   time.Now().UTC(),
		metadata: metadata,
	})
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed updating payment")
		return
	}

	w.LogInfo(map[string]interface{}{
		"payment_id": updated.ID,
		"status":     updated.Status.Name,
		"event_id":   report.EventID,
	}, "success")
}
