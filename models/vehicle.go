package models

import (
	"time"

	"github.com/thedevsaddam/govalidator"
)

type Vehicle struct {
	ID            int       `json:"id,omitempty"`
	Carrier       *User     `json:"carrier,omitempty"`
	Type          string    `json:"type,omitempty"`
	Plate         string    `json:"plate,omitempty"`
	CapacityKg    int       `json:"capacity_kg,omitempty"`
	Location      string    `json:"location,omitempty"`
	AvailableFrom time.Time `json:"available_from,omitempty"`
	Active        bool      `json:"active"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`
}

type InsertVehicleOpts struct {
	Type          string `json:"type"`
	Plate         string `json:"plate"`
	CapacityKg    int    `json:"capacity_kg"`
	Location      string `json:"location"`
	AvailableFrom string `json:"available_from"`
}

var InsertVehicleRules = govalidator.MapData{
	"type":           []string{"required"},
	"plate":          []string{"required"},
	"capacity_kg":    []string{"required", "numeric"},
	"location":       []string{"required"},
	"available_from": []string{"required", "date_ISO8601"},
}

type GetVehiclesOpts struct {
	CarrierIDs []int    `schema:"carrier_ids"`
	Types      []string `schema:"types"`
	Locations  []string `schema:"locations"`
	MinCapKg   int      `schema:"min_capacity_kg"`
	LimitFrom  int      `schema:"limit_from"`
	LimitTo    int      `schema:"limit_to"`
}

var GetVehiclesRules = govalidator.MapData{
	"carrier_ids":     []string{"array_int"},
	"types":           []string{"array_string"},
	"locations":       []string{"array_string"},
	"min_capacity_kg": []string{"numeric"},
	"limit_from":      []string{"numeric"},
	"limit_to":        []string{"numeric"},
}
