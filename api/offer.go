package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/models"
	"github.com/gorilla/mux"
	"github.com/lithammer/shortuuid/v3"
	"github.com/mitchellh/mapstructure"
	"github.com/thedevsaddam/govalidator"
)

func InsertOffer(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsCarrier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	vars := mux.Vars(r)
	shipmentID, err := strconv.Atoi(vars["shipment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing shipment id")
		return
	}

	shipment, err := ctx.DB.GetShipmentByID(shipmentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting shipment")
		return
	}

	if shipment == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.ShipmentNotFound)
		return
	}

	if shipment.Status.ID != db.ConstShipmentStatuses.Open.ID {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.ShipmentNotOpen)
		return
	}

	var opts models.InsertOfferOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertOfferRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	if opts.Price <= 0 {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "price must be a positive number")
		return
	}

	offerID, err := ctx.DB.InsertOffer(shipmentID, userInfo.ID, shortuuid.New(), &opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed inserting offer")
		return
	}

	offer, err := ctx.DB.GetOfferByID(offerID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting offer")
		return
	}

	w.WriteJSON(http.StatusOK, offer, nil, "")
}

func GetOffersByShipment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	vars := mux.Vars(r)
	shipmentID, err := strconv.Atoi(vars["shipment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing shipment id")
		return
	}

	shipment, err := ctx.DB.GetShipmentByID(shipmentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting shipment")
		return
	}

	if shipment == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.ShipmentNotFound)
		return
	}

	if shipment.Shipper.ID != userInfo.ID && !userInfo.IsAdmin {
		w.WriteJSON(http.StatusForbidden, nil, nil, "invalid user")
		return
	}

	offers, err := ctx.DB.GetOffersByShipmentID(shipmentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting offers")
		return
	}

	w.WriteJSON(http.StatusOK, offers, nil, "")
}

func AcceptOffer(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	vars := mux.Vars(r)
	offerID, err := strconv.Atoi(vars["offer_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing offer id")
		return
	}

	offer, err := ctx.DB.GetOfferByID(offerID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting offer")
		return
	}

	if offer == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.OfferNotFound)
		return
	}

	shipment, err := ctx.DB.GetShipmentByID(offer.Shipment.ID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting shipment")
		return
	}

	if shipment == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.ShipmentNotFound)
		return
	}

	if shipment.Shipper.ID != userInfo.ID && !userInfo.IsAdmin {
		w.WriteJSON(http.StatusForbidden, nil, nil, "invalid user")
		return
	}

	if shipment.Status.ID != db.ConstShipmentStatuses.Open.ID {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.ShipmentNotOpen)
		return
	}

	if offer.Status.ID != db.ConstOfferStatuses.Pending.ID {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "offer is not pending")
		return
	}

	if err := ctx.DB.AcceptOffer(offerID, shipment.ID); err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed accepting offer")
		return
	}

	offer, err = ctx.DB.GetOfferByID(offerID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting offer")
		return
	}

	w.WriteJSON(http.StatusOK, offer, nil, "")
}
