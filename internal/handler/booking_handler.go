package handler

import (
	"net/http"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
)

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	names, err := h.availability.ServiceNames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// Available handles GET /available?date=.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	services, err := h.availability.ListAvailable(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if services == nil {
		services = []model.Service{}
	}
	writeJSON(w, http.StatusOK, services)
}

// CreateBooking handles POST /service. A conflict is a 200 with
// success=false and the existing record.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var b model.Booking
	if err := decode(w, r, &b); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.ledger.Create(r.Context(), b)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PatientBookings handles GET /booking?patient=. Callers only see their own.
func (h *Handler) PatientBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	patient := r.URL.Query().Get("patient")
	if patient == "" || patient != id.Email {
		h.fail(w, r, auth.ErrForbidden)
		return
	}
	list, err := h.ledger.PatientBookings(r.Context(), patient)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}
