package api

import (
	"fmt"
	"net/http"
	"reflect"
	"time"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/helpers"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/models"
	"bitbucket.org/cargolink/backend/processors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/thedevsaddam/govalidator"
)

const reconcileRetries = 3

// statusFromProcessor translates the processor-neutral status vocabulary into
// the stored status rows.
func statusFromProcessor(status string) models.PaymentStatus {
	switch status {
	case processors.StatusCompleted:
		return db.ConstPaymentStatuses.Completed
	case processors.StatusFailed:
		return db.ConstPaymentStatuses.Failed
	}
	return db.ConstPaymentStatuses.Pending
}

type reconcileUpdate struct {
	status        models.PaymentStatus
	transactionID string
	metadata      models.Metadata
	paidAt        time.Time
}

// reconcilePayment merges one report of a payment's state into the stored
// row. Writers race here (synchronous completion vs. webhook delivery), so
// the write is a compare-and-set on the current status, retried with a fresh
// read on conflict. Rules: a terminal status never regresses, paid-at is set
// exactly when the row is completed, the transaction id is write-once and the
// metadata merge keeps previously recorded fields. Re-applying a report the
// row already reflects is a no-op.
func reconcilePayment(ctx *config.AppContext, paymentID string, update reconcileUpdate) (*models.Payment, error) {
	for attempt := 0; attempt < reconcileRetries; attempt++ {
		payment, err := ctx.DB.GetPaymentByID(paymentID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, errors.Errorf("payment %s not found", paymentID)
		}

		statusID := update.status.ID
		if db.IsTerminalPaymentStatus(payment.Status.ID) && payment.Status.ID != statusID {
			// The row already reached a terminal state. A late report of an
			// earlier, superseded processor state only contributes metadata.
			statusID = payment.Status.ID
		}

		merged := payment.Metadata.Merge(update.metadata)

		var paidAt *time.Time
		if statusID == db.ConstPaymentStatuses.Completed.ID {
			if payment.PaidAt != nil {
				paidAt = payment.PaidAt
			} else {
				t := update.paidAt
				if t.IsZero() {
					t = time.Now().UTC()
				}
				paidAt = &t
			}
		}

		transactionID := update.transactionID
		if payment.TransactionID != "" {
			transactionID = ""
		}

		if statusID == payment.Status.ID && transactionID == "" &&
			reflect.DeepEqual(merged, payment.Metadata) && equalPaidAt(paidAt, payment.PaidAt) {
			return payment, nil
		}

		matched, err := ctx.DB.UpdatePaymentReconcile(&db.UpdatePaymentReconcileOpts{
			ID:               paymentID,
			ExpectedStatusID: payment.Status.ID,
			StatusID:         statusID,
			PaidAt:           paidAt,
			TransactionID:    transactionID,
			Metadata:         merged.Serialize(),
		})
		if err != nil {
			return nil, err
		}

		if matched {
			return ctx.DB.GetPaymentByID(paymentID)
		}
	}

	return nil, errors.Errorf("payment %s: too many concurrent updates", paymentID)
}

func equalPaidAt(a *time.Time, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// InsertPaymentIntent registers transaction intent with Stripe and persists
// the matching PENDING payment before any money moves. The Stripe intent id
// becomes the transaction id, the join key for every later reconciliation.
func InsertPaymentIntent(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsShipper {
		w.WriteJSON(http.StatusForbidden, nil, nil, "invalid roles")
		return
	}

	var opts models.InsertPaymentIntentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertPaymentIntentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.WriteJSON(http.StatusBadRequest, errs, nil, "failed validations")
		return
	}

	if opts.Amount <= 0 {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "amount must be a positive number")
		return
	}

	description := opts.Description
	if description == "" {
		user, err := ctx.DB.GetUserByID(userInfo.ID)
		if err != nil {
			w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting user")
			return
		}
		if user != nil {
			description = fmt.Sprintf("CargoLink freight payment %s for %s", helpers.FormatAmount(opts.Amount, opts.Currency), user.Company)
		}
	}

	if opts.OfferID > 0 {
		offer, err := ctx.DB.GetOfferByID(opts.OfferID)
		if err != nil {
			w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting offer")
			return
		}
		if offer == nil {
			w.WriteJSON(http.StatusNotFound, nil, nil, "offer not found")
			return
		}
	}

	paymentID := uuid.NewString()

	intent, err := ctx.Stripe.CreateIntent(paymentID, opts.Amount, opts.Currency, description)
	if err == processors.ErrNotConfigured {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "stripe is not configured")
		return
	}
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "problems with Stripe")
		return
	}

	metadata := models.Metadata{
		"stripe_intent_id": intent.ID,
		"stripe_status":    intent.Status,
	}

	if err := ctx.DB.InsertPayment(&db.InsertPaymentOpts{
		ID:            paymentID,
		UserID:        userInfo.ID,
		OfferID:       opts.OfferID,
		MethodID:      db.ConstPaymentMethods.Card.ID,
		StatusID:      db.ConstPaymentStatuses.Pending.ID,
		Amount:        opts.Amount,
		Currency:      opts.Currency,
		Description:   description,
		TransactionID: intent.ID,
		Metadata:      metadata.Serialize(),
	}); err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed inserting payment")
		return
	}

	payment, err := ctx.DB.GetPaymentByID(paymentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payment")
		return
	}

	w.WriteJSON(http.StatusOK, models.PaymentIntentResponse{
		Payment:      payment,
		ClientSecret: intent.ClientSecret,
	}, nil, "")
}

// InsertPayment registers a payment attempt that has no processor intent yet
// (bank transfer, account debit, or a card payment finalized later through
// the completion endpoint). The transaction id stays NULL until a processor
// acknowledges the attempt.
func InsertPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsShipper {
		w.WriteJSON(http.StatusForbidden, nil, nil, "invalid roles")
		return
	}

	var opts models.InsertPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.WriteJSON(http.StatusBadRequest, errs, nil, "failed validations")
		return
	}

	if opts.Amount <= 0 {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "amount must be a positive number")
		return
	}

	if db.PaymentMethodByID(opts.MethodID) == nil {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "unsupported payment method")
		return
	}

	if opts.OfferID > 0 {
		offer, err := ctx.DB.GetOfferByID(opts.OfferID)
		if err != nil {
			w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting offer")
			return
		}
		if offer == nil {
			w.WriteJSON(http.StatusNotFound, nil, nil, "offer not found")
			return
		}
	}

	paymentID := uuid.NewString()

	if err := ctx.DB.InsertPayment(&db.InsertPaymentOpts{
		ID:          paymentID,
		UserID:      userInfo.ID,
		OfferID:     opts.OfferID,
		MethodID:    opts.MethodID,
		StatusID:    db.ConstPaymentStatuses.Pending.ID,
		Amount:      opts.Amount,
		Currency:    opts.Currency,
		Description: opts.Description,
		Metadata:    models.Metadata{}.Serialize(),
	}); err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed inserting payment")
		return
	}

	payment, err := ctx.DB.GetPaymentByID(paymentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payment")
		return
	}

	w.WriteJSON(http.StatusOK, payment, nil, "")
}

// CompletePayment finalizes a card payment with a client-obtained source
// token through Square. The payment id doubles as the idempotency key, so a
// retried call (client timeout, double submit) cannot create a second charge.
func CompletePayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	vars := mux.Vars(r)
	paymentID := vars["payment_id"]

	payment, err := ctx.DB.GetPaymentByID(paymentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payment")
		return
	}

	if payment == nil {
		w.WriteJSON(http.StatusNotFound, nil, nil, "payment not found")
		return
	}

	if payment.User.ID != userInfo.ID && !userInfo.IsAdmin {
		w.WriteJSON(http.StatusForbidden, nil, nil, "invalid user")
		return
	}

	if payment.Status.ID == db.ConstPaymentStatuses.Completed.ID {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "payment already completed")
		return
	}

	if payment.Status.ID == db.ConstPaymentStatuses.Failed.ID {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "payment already failed")
		return
	}

	var opts models.CompletePaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.CompletePaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.WriteJSON(http.StatusBadRequest, errs, nil, "failed validations")
		return
	}

	if payment.Method.ID != db.ConstPaymentMethods.Card.ID {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "unsupported payment method")
		return
	}

	if payment.TransactionID != "" {
		// The row is already bound to a processor transaction (an intent-flow
		// payment settles through its intent, not through this endpoint).
		// Rejecting before the charge keeps this path free of side effects.
		w.WriteJSON(http.StatusInternalServerError, nil,
			errors.Errorf("payment %s already bound to transaction %s", payment.ID, payment.TransactionID),
			"payment already bound to a processor transaction")
		return
	}

	note := payment.Description
	if note == "" {
		note = fmt.Sprintf("CargoLink payment %s (%s)", payment.ID, helpers.FormatAmount(payment.Amount, payment.Currency))
	}

	sqPayment, err := ctx.Square.CreatePayment(payment.ID, opts.SourceToken, payment.Amount, payment.Currency, note)
	if err == processors.ErrNotConfigured {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "square is not configured")
		return
	}
	if err != nil {
		// The processor rejected the charge: record the failure before
		// surfacing it, the row must not stay silently pending.
		if _, recErr := reconcilePayment(ctx, payment.ID, reconcileUpdate{
			status: db.ConstPaymentStatuses.Failed,
			metadata: models.Metadata{
				"error":     err.Error(),
				"failed_at": time.Now().UTC().Format(time.RFC3339),
			},
		}); recErr != nil {
			w.WriteJSON(http.StatusInternalServerError, nil, recErr, "failed recording payment failure")
			return
		}

		w.WriteJSON(http.StatusInternalServerError, nil, err, "problems with Square")
		return
	}

	status, _ := processors.MapSquareStatus(sqPayment.Status)

	updated, err := reconcilePayment(ctx, payment.ID, reconcileUpdate{
		status:        statusFromProcessor(status),
		transactionID: sqPayment.ID,
		metadata: models.Metadata{
			"square_payment_id": sqPayment.ID,
			"square_status":     sqPayment.Status,
			"receipt_url":       sqPayment.ReceiptURL,
		},
	})
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed updating payment")
		return
	}

	w.WriteJSON(http.StatusOK, updated, nil, "")
}

func GetPaymentByID(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	vars := mux.Vars(r)
	paymentID := vars["payment_id"]

	payment, err := ctx.DB.GetPaymentByID(paymentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payment")
		return
	}

	if payment == nil {
		w.WriteJSON(http.StatusNotFound, nil, nil, "payment not found")
		return
	}

	if payment.User.ID != userInfo.ID && !userInfo.IsAdmin {
		w.WriteJSON(http.StatusForbidden, nil, nil, "invalid user")
		return
	}

	w.WriteJSON(http.StatusOK, payment, nil, "")
}

func GetPayments(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetPaymentsRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.WriteJSON(http.StatusBadRequest, errs, nil, "failed validations")
		return
	}

	var opts models.GetPaymentsOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.Decode(&opts, r.URL.Query())

	if !userInfo.IsAdmin {
		opts.UserIDs = []int{userInfo.ID}
	}

	payments, err := ctx.DB.GetPayments(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payments")
		return
	}

	w.WriteJSON(http.StatusOK, payments, nil, "")
}
