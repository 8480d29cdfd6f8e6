package api

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/thedevsaddam/govalidator"
)

func InsertShipment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsShipper {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	var opts models.InsertShipmentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertShipmentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	pickupDate, err := time.Parse(db.ConstLayoutDate, opts.PickupDate)
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing pickup date")
		return
	}

	if pickupDate.Before(time.Now().Truncate(24 * time.Hour)) {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "pickup date can't be in the past")
		return
	}

	if opts.Price <= 0 {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "price must be a positive number")
		return
	}

	shipmentID, err := ctx.DB.InsertShipment(userInfo.ID, &opts, pickupDate)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed inserting shipment")
		return
	}

	shipment, err := ctx.DB.GetShipmentByID(shipmentID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting shipment")
		return
	}

	w.WriteJSON(http.StatusOK, shipment, nil, "")
}

func GetShipments(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetShipmentsRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetShipmentsOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.Decode(&opts, r.URL.Query())

	shipments, err := ctx.DB.GetShipments(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting shipments")
		return
	}

	w.WriteJSON(http.StatusOK, shipments, nil, "")
}

func GetShipmentByID(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

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

	w.WriteJSON(http.StatusOK, shipment, nil, "")
}
