package processors

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const sqContentType = `application/json`

type SquareClient struct {
	BaseURL         string
	Token           string
	Version         string
	LocationID      string
	SignatureKey    string
	NotificationURL string
	HTTPClient      *http.Client
}

type SQMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type SQCreatePaymentRequest struct {
	IdempotencyKey string  `json:"idempotency_key"`
	SourceID       string  `json:"source_id"`
	AmountMoney    SQMoney `json:"amount_money"`
	LocationID     string  `json:"location_id,omitempty"`
	Note           string  `json:"note,omitempty"`
}

type SQPayment struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	ReceiptURL string  `json:"receipt_url"`
	Note       string  `json:"note"`
	Money      SQMoney `json:"amount_money"`
}

type SQError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type SQCreatePaymentResponse struct {
	Payment *SQPayment `json:"payment"`
	Errors  []SQError  `json:"errors"`
}

// CreatePayment charges a source token. idempotencyKey is the local payment
// id: Square deduplicates on it, so a retried completion call can never
// double-charge.
func (sq *SquareClient) CreatePayment(idempotencyKey string, sourceToken string, amount int64, currency string, note string) (*SQPayment, error) {
	if sq.Token == "" {
		return nil, ErrNotConfigured
	}

	requestBody := SQCreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       sourceToken,
		AmountMoney: SQMoney{
			Amount:   amount,
			Currency: strings.ToUpper(currency),
		},
		LocationID: sq.LocationID,
		Note:       note,
	}

	responseBody, err := sq.post(sq.BaseURL+"/v2/payments", &requestBody)
	if err != nil {
		return nil, err
	}

	var response SQCreatePaymentResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, err
	}

	if len(response.Errors) > 0 {
		return nil, errors.Errorf("square: %s %s: %s", response.Errors[0].Category, response.Errors[0].Code, response.Errors[0].Detail)
	}

	if response.Payment == nil {
		return nil, errors.New("square: empty payment in response")
	}

	return response.Payment, nil
}

func (sq *SquareClient) post(url string, body interface{}) ([]byte, error) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", sqContentType)
	request.Header.Set("Authorization", "Bearer "+sq.Token)
	if sq.Version != "" {
		request.Header.Set("Square-Version", sq.Version)
	}

	httpClient := sq.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBody, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		var failure SQCreatePaymentResponse
		if err := json.Unmarshal(responseBody, &failure); err == nil && len(failure.Errors) > 0 {
			return nil, errors.Errorf("square: %s %s: %s", failure.Errors[0].Category, failure.Errors[0].Code, failure.Errors[0].Detail)
		}

		return nil, errors.Errorf("square: bad response %d", response.StatusCode)
	}

	return responseBody, nil
}

// VerifySignature checks Square's webhook signature: base64 HMAC-SHA256 of
// the notification URL concatenated with the raw body. The body must be the
// exact bytes received, before any parsing.
func (sq *SquareClient) VerifySignature(body []byte, signature string) error {
	if sq.SignatureKey == "" {
		return ErrNotConfigured
	}

	if signature == "" {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(sq.SignatureKey))
	mac.Write([]byte(sq.NotificationURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}

type SQWebhookEvent struct {
	MerchantID string         `json:"merchant_id"`
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	Data       *SQWebhookData `json:"data"`
}

type SQWebhookData struct {
	Type   string           `json:"type"`
	ID     string           `json:"id"`
	Object *SQWebhookObject `json:"object"`
}

type SQWebhookObject struct {
	Payment *SQPayment `json:"payment"`
}

type SquareWebhookPayment struct {
	EventID       string
	EventType     string
	TransactionID string
	Status        string
	NativeStatus  string
	ReceiptURL    string
}

// ParseWebhookPayment extracts the payment carried by a verified event body.
// A false return means the event is not about a payment and must be
// acknowledged without effect.
func (sq *SquareClient) ParseWebhookPayment(body []byte) (*SquareWebhookPayment, bool) {
	var event SQWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, false
	}

	if !strings.HasPrefix(event.Type, "payment.") {
		return nil, false
	}

	if event.Data == nil || event.Data.Object == nil || event.Data.Object.Payment == nil {
		return nil, false
	}

	payment := event.Data.Object.Payment
	status, ok := MapSquareStatus(payment.Status)
	if !ok {
		return nil, false
	}

	return &SquareWebhookPayment{
		EventID:       event.EventID,
		EventType:     event.Type,
		TransactionID: payment.ID,
		Status:        status,
		NativeStatus:  payment.Status,
		ReceiptURL:    payment.ReceiptURL,
	}, true
}

// MapSquareStatus translates Square's payment statuses into the local
// three-state vocabulary. Canceled counts as failed.
func MapSquareStatus(status string) (string, bool) {
	switch status {
	case "PENDING", "APPROVED":
		return StatusPending, true
	case "COMPLETED":
		return StatusCompleted, true
	case "FAILED", "CANCELED":
		return StatusFailed, true
	}
	return "", false
}
