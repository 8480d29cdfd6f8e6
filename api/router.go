package api

import (
	"net/http"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/server"
)

// HealthcheckHandler indicates the service's healthy
func HealthcheckHandler(_ *config.AppContext, w *middlewares.ResponseWriter, _ *http.Request) {
	w.String(http.StatusOK, "OK")
}

// GetRoutes ...
func GetRoutes() []*server.Route {
	return []*server.Route{
		{Path: "/healthcheck", Methods: []string{"GET", "HEAD"}, Handler: HealthcheckHandler, IsProtected: false},

		// User directory
		{Path: "/user/{user_id}", Methods: []string{"GET", "HEAD"}, Handler: GetUserByID, IsProtected: true},

		// Shipment
		{Path: "/shipment", Methods: []string{"POST", "HEAD"}, Handler: InsertShipment, IsProtected: true},
		{Path: "/shipment", Methods: []string{"GET", "HEAD"}, Handler: GetShipments, IsProtected: false},
		{Path: "/shipment/{shipment_id}", Methods: []string{"GET", "HEAD"}, Handler: GetShipmentByID, IsProtected: false},

		// Vehicle
		{Path: "/vehicle", Methods: []string{"POST", "HEAD"}, Handler: InsertVehicle, IsProtected: true},
		{Path: "/vehicle", Methods: []string{"GET", "HEAD"}, Handler: GetVehicles, IsProtected: false},

		// Offer
		{Path: "/shipment/{shipment_id}/offer", Methods: []string{"POST", "HEAD"}, Handler: InsertOffer, IsProtected: true},
		{Path: "/shipment/{shipment_id}/offer", Methods: []string{"GET", "HEAD"}, Handler: GetOffersByShipment, IsProtected: true},
		{Path: "/offer/{offer_id}/accept", Methods: []string{"PUT", "HEAD"}, Handler: AcceptOffer, IsProtected: true},

		// Payment
		{Path: "/payment/intent", Methods: []string{"POST", "HEAD"}, Handler: InsertPaymentIntent, IsProtected: true},
		{Path: "/payment", Methods: []string{"POST", "HEAD"}, Handler: InsertPayment, IsProtected: true},
		{Path: "/payment", Methods: []string{"GET", "HEAD"}, Handler: GetPayments, IsProtected: true},
		{Path: "/payment/{payment_id}", Methods: []string{"GET", "HEAD"}, Handler: GetPaymentByID, IsProtected: true},
		{Path: "/payment/{payment_id}/complete", Methods: []string{"POST", "HEAD"}, Handler: CompletePayment, IsProtected: true},

		// Webhooks are authenticated by processor signature, not by JWT.
		{Path: "/payment/webhook/stripe", Methods: []string{"POST", "HEAD"}, Handler: UpdatePaymentStripe, IsProtected: false},
		{Path: "/payment/webhook/square", Methods: []string{"POST", "HEAD"}, Handler: UpdatePaymentSquare, IsProtected: false},
	}
}
