package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/valutx/internal/common"
)

const (
	detailCredentials    = "Could not validate credentials"
	detailDuplicateEmail = "The user with this email already exists in the system."
	detailBadLogin       = "Incorrect email or password"
	detailUserNotFound   = "User not found"
	detailItemNotFound   = "Item not found"
	detailConflict       = "Version conflict: item was modified on another device"
	detailValidation     = "Invalid request"
	detailTooMany        = "Too many failed login attempts, try again later"
	detailExport         = "Export is not configured on this server"
	detailTooLarge       = "Request body too large"
	detailInternal       = "Internal server error"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detailCredentials)
}

// writeError maps a service error to a response. notFound is the detail
// used for common.ErrorNotFound, which differs per resource.
func writeError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, common.ErrInvalidToken):
		writeUnauthorized(w)
	case errors.Is(err, common.ErrDuplicateEmail):
		writeDetail(w, http.StatusBadRequest, detailDuplicateEmail)
	case errors.Is(err, common.ErrorUnauthorized):
		writeDetail(w, http.StatusBadRequest, detailBadLogin)
	case errors.Is(err, common.ErrorNotFound):
		writeDetail(w, http.StatusNotFound, notFound)
	case errors.Is(err, common.ErrVersionConflict):
		writeDetail(w, http.StatusConflict, detailConflict)
	case errors.Is(err, common.ErrorValidation):
		writeDetail(w, http.StatusUnprocessableEntity, detailValidation)
	case errors.Is(err, common.ErrTooManyAttempts):
		writeDetail(w, http.StatusTooManyRequests, detailTooMany)
	case errors.Is(err, common.ErrExportUnavailable):
		writeDetail(w, http.StatusServiceUnavailable, detailExport)
	default:
		writeDetail(w, http.StatusInternalServerError, detailInternal)
	}
}
