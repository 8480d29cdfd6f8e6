package models

import (
	"time"

	"github.com/thedevsaddam/govalidator"
)

type Offer struct {
	ID        int          `json:"id,omitempty"`
	Reference string       `json:"reference,omitempty"`
	Shipment  *Shipment    `json:"shipment,omitempty"`
	Carrier   *User        `json:"carrier,omitempty"`
	Price     int64        `json:"price,omitempty"`
	Currency  string       `json:"currency,omitempty"`
	Status    *OfferStatus `json:"offer_status,omitempty"`
	Created   time.Time    `json:"created"`
	Updated   time.Time    `json:"updated"`
}

type OfferStatus struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type InsertOfferOpts struct {
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

var InsertOfferRules = govalidator.MapData{
	"price":    []string{"required", "numeric"},
	"currency": []string{"required"},
}
