package api

import (
	"net/http"
	"time"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/models"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/thedevsaddam/govalidator"
)

func InsertVehicle(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCarrier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	var opts models.InsertVehicleOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertVehicleRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	availableFrom, err := time.Parse(db.ConstLayoutDate, opts.AvailableFrom)
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing available from date")
		return
	}

	if opts.CapacityKg <= 0 {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "capacity must be a positive number")
		return
	}

	vehicleID, err := ctx.DB.InsertVehicle(userInfo.ID, &opts, availableFrom)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed inserting vehicle")
		return
	}

	w.WriteJSON(http.StatusOK, map[string]interface{}{
		"id": vehicleID,
	}, nil, "")
}

func GetVehicles(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetVehiclesRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetVehiclesOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.Decode(&opts, r.URL.Query())

	vehicles, err := ctx.DB.GetVehicles(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting vehicles")
		return
	}

	w.WriteJSON(http.StatusOK, vehicles, nil, "")
}
