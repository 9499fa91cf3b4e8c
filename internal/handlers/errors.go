package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"interiorly/internal/services"
	"interiorly/internal/utils"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a bounded JSON body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Invalid request body")
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service errors onto status codes. Anything unknown is
// logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCode), errors.Is(err, services.ErrOTPExpired):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrSessionExpired):
		utils.RespondWithError(w, http.StatusUnauthorized, "session expired")
	case errors.Is(err, services.ErrInvalidToken):
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithError(w, http.StatusForbidden, services.ErrForbidden.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSlotConflict), errors.Is(err, services.ErrEmailInUse):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrTooManyAttempts):
		utils.RespondWithError(w, http.StatusTooManyRequests, services.ErrTooManyAttempts.Error())
	case errors.Is(err, services.ErrDeliveryUnavailable):
		utils.RespondWithError(w, http.StatusServiceUnavailable, services.ErrDeliveryUnavailable.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled error")
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
