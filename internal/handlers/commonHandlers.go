package handlers

import (
	"net/http"

	"interiorly/internal/database"
	"interiorly/internal/utils"
)

type CommonHandler struct {
	db database.Service
}

func NewCommonHandler(db database.Service) *CommonHandler {
	return &CommonHandler{db: db}
}

func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := h.db.Health()

	status := http.StatusOK
	if health["message"] != "It's healthy" {
		status = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, status, health)
}

func (h *CommonHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithError(w, http.StatusNotFound, "Route not found")
}
