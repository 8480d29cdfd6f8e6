package models

import (
	"encoding/json"
	"time"

	"github.com/thedevsaddam/govalidator"
)

type Payment struct {
	ID            string         `json:"id,omitempty"`
	User          *User          `json:"user,omitempty"`
	Offer         *Offer         `json:"offer,omitempty"`
	Method        *PaymentMethod `json:"method,omitempty"`
	Status        *PaymentStatus `json:"payment_status,omitempty"`
	Amount        int64          `json:"amount,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Description   string         `json:"description,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	Metadata      Metadata       `json:"metadata,omitempty"`
	Created       time.Time      `json:"created"`
	Updated       time.Time      `json:"updated"`
}

type PaymentMethod struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type PaymentStatus struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Metadata is the free-form diagnostic blob stored next to a payment. It is
// persisted as serialized JSON and treated as forward-compatible key/value
// storage: readers must tolerate keys they do not know about.
type Metadata map[string]interface{}

// Merge returns the shallow union of m and in. Keys from in win. Neither the
// receiver nor the argument is mutated.
func (m Metadata) Merge(in Metadata) Metadata {
	out := make(Metadata, len(m)+len(in))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ParseMetadata decodes a stored blob. A missing or corrupt blob yields an
// empty map so a bad historical row never blocks reconciliation.
func ParseMetadata(raw string) Metadata {
	if raw == "" {
		return Metadata{}
	}
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Metadata{}
	}
	return m
}

func (m Metadata) Serialize() string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

type InsertPaymentIntentOpts struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	OfferID     int    `json:"offer_id"`
}

var InsertPaymentIntentRules = govalidator.MapData{
	"amount":      []string{"required", "numeric"},
	"currency":    []string{"required"},
	"description": []string{},
	"offer_id":    []string{"numeric"},
}

type InsertPaymentOpts struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	MethodID    int    `json:"method_id"`
	Description string `json:"description"`
	OfferID     int    `json:"offer_id"`
}

var InsertPaymentRules = govalidator.MapData{
	"amount":      []string{"required", "numeric"},
	"currency":    []string{"required"},
	"method_id":   []string{"required", "numeric"},
	"description": []string{},
	"offer_id":    []string{"numeric"},
}

type CompletePaymentOpts struct {
	SourceToken string `json:"source_token"`
}

var CompletePaymentRules = govalidator.MapData{
	"source_token": []string{"required"},
}

type GetPaymentsOpts struct {
	CreatedFrom string `schema:"created_from"`
	CreatedTo   string `schema:"created_to"`
	UserIDs     []int  `schema:"user_ids"`
	StatusIDs   []int  `schema:"status_ids"`
	MethodIDs   []int  `schema:"method_ids"`
	LimitFrom   int    `schema:"limit_from"`
	LimitTo     int    `schema:"limit_to"`
}

var GetPaymentsRules = govalidator.MapData{
	"created_from": []string{"date_ISO8601"},
	"created_to":   []string{"date_ISO8601"},
	"user_ids":     []string{"array_int"},
	"status_ids":   []string{"array_int"},
	"method_ids":   []string{"array_int"},
	"limit_from":   []string{"numeric"},
	"limit_to":     []string{"numeric"},
}

type PaymentIntentResponse struct {
	Payment      *Payment `json:"payment"`
	ClientSecret string   `json:"client_secret,omitempty"`
}
