package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"interiorly/internal/models"
	"interiorly/internal/services"
	"interiorly/internal/utils"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (a *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := a.authService.SendOTP(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (a *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := a.authService.VerifyOTP(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info().Str("userID", resp.User.ID).Msg("User session issued")
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
