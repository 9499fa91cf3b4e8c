package handlers

import (
	"net/http"
	"strconv"

	"interiorly/internal/models"
	"interiorly/internal/services"
	"interiorly/internal/utils"
)

type BookingHandler struct {
	bookingService services.BookingService
}

func NewBookingHandler(bookingService services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func (h *BookingHandler) GetBlockedSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.bookingService.GetBlockedSlots(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, slots)
}

func (h *BookingHandler) AddBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var req models.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.bookingService.CreateBooking(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, booking)
}

func queryInt(r *http.Request, key string) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "limit must be a number")
		return
	}

	query := models.BookingQuery{
		Status: r.URL.Query().Get("status"),
		Date:   r.URL.Query().Get("date"),
		Q:      r.URL.Query().Get("q"),
		Page:   page,
		Limit:  limit,
	}

	result, err := h.bookingService.ListBookings(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if !query.Paginated() {
		utils.RespondWithJSON(w, http.StatusOK, result.Items)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	bookings, err := h.bookingService.ListMyBookings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, bookings)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	bookingID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	var req models.UpdateBookingStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.bookingService.UpdateStatus(r.Context(), bookingID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	if err := h.bookingService.DeleteBooking(r.Context(), bookingID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Booking deleted"})
}
