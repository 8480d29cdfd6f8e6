package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestGetShipmentByIDNotFoundByLanguage(t *testing.T) {
	store := newFakeStorage()
	ctx := &config.AppContext{DB: store}

	tests := []struct {
		acceptLanguage string
		expected       string
	}{
		{"", "Shipment not found"},
		{"en-US", "Shipment not found"},
		{"es-CL", "No se encontró el embarque"},
	}

	for _, test := range tests {
		r := httptest.NewRequest(http.MethodGet, "/shipment/42", nil)
		if test.acceptLanguage != "" {
			r.Header.Set("Accept-Language", test.acceptLanguage)
		}
		r = mux.SetURLVars(r, map[string]string{"shipment_id": "42"})
		recorder, w := newResponse()

		GetShipmentByID(ctx, w, r)

		assert.Equal(t, http.StatusNotFound, recorder.Code, test.acceptLanguage)
		assert.Contains(t, recorder.Body.String(), test.expected, test.acceptLanguage)
	}
}

func TestInsertOfferInvalidRoleByLanguage(t *testing.T) {
	store := newFakeStorage()
	store.shipments[42] = &models.Shipment{
		ID:      42,
		Status:  &models.ShipmentStatus{ID: db.ConstShipmentStatuses.Open.ID},
		Shipper: &models.User{ID: 7},
	}
	ctx := &config.AppContext{DB: store}

	r := newJSONRequest(t, http.MethodPost, "/shipment/42/offer", `{"price":90000,"currency":"USD"}`, shipperInfo(7))
	r.Header.Set("Accept-Language", "es")
	r = mux.SetURLVars(r, map[string]string{"shipment_id": "42"})
	recorder, w := newResponse()

	InsertOffer(ctx, w, r)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "No tienes permiso")
}
