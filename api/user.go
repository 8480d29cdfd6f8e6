package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/cargolink/backend/config"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/models"
	"github.com/gorilla/mux"
	"github.com/mitchellh/mapstructure"
)

// GetUserByID is the read-only directory lookup used for receipt
// descriptions. Account management belongs to the external auth service.
func GetUserByID(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	vars := mux.Vars(r)
	userID, err := strconv.Atoi(vars["user_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing user id")
		return
	}

	if userID != userInfo.ID && !userInfo.IsAdmin {
		w.WriteJSON(http.StatusForbidden, nil, nil, "invalid user")
		return
	}

	user, err := ctx.DB.GetUserByID(userID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting user")
		return
	}

	if user == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.UserNotFound)
		return
	}

	w.WriteJSON(http.StatusOK, user, nil, "")
}
