package models

import (
	"time"

	"github.com/thedevsaddam/govalidator"
)

type Shipment struct {
	ID          int             `json:"id,omitempty"`
	Shipper     *User           `json:"shipper,omitempty"`
	Origin      string          `json:"origin,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Cargo       string          `json:"cargo,omitempty"`
	WeightKg    int             `json:"weight_kg,omitempty"`
	PickupDate  time.Time       `json:"pickup_date,omitempty"`
	Price       int64           `json:"price,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	Status      *ShipmentStatus `json:"shipment_status,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

type ShipmentStatus struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type InsertShipmentOpts struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Cargo       string `json:"cargo"`
	WeightKg    int    `json:"weight_kg"`
	PickupDate  string `json:"pickup_date"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
}

var InsertShipmentRules = govalidator.MapData{
	"origin":      []string{"required"},
	"destination": []string{"required"},
	"cargo":       []string{"required"},
	"weight_kg":   []string{"required", "numeric"},
	"pickup_date": []string{"required", "date_ISO8601"},
	"price":       []string{"required", "numeric"},
	"currency":    []string{"required"},
}

type GetShipmentsOpts struct {
	CreatedFrom  string   `schema:"created_from"`
	CreatedTo    string   `schema:"created_to"`
	ShipperIDs   []int    `schema:"shipper_ids"`
	StatusIDs    []int    `schema:"status_ids"`
	Origins      []string `schema:"origins"`
	Destinations []string `schema:"destinations"`
	LimitFrom    int      `schema:"limit_from"`
	LimitTo      int      `schema:"limit_to"`
}

var GetShipmentsRules = govalidator.MapData{
	"created_from": []string{"date_ISO8601"},
	"created_to":   []string{"date_ISO8601"},
	"shipper_ids":  []string{"array_int"},
	"status_ids":   []string{"array_int"},
	"origins":      []string{"array_string"},
	"destinations": []string{"array_string"},
	"limit_from":   []string{"numeric"},
	"limit_to":     []string{"numeric"},
}

type ShipmentsStruct struct {
	Shipments []Shipment `json:"shipments"`
	Total     int        `json:"total"`
}
