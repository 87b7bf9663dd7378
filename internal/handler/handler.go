package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/directory"
	"clinic-booking-api/internal/doctor"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	availability *booking.Availability
	ledger       *booking.Ledger
	users        *directory.Directory
	doctors      *doctor.Registry
	health       Pinger
	log          zerolog.Logger
}

func New(a *booking.Availability, l *booking.Ledger, u *directory.Directory, d *doctor.Registry, health Pinger, log zerolog.Logger) *Handler {
	return &Handler{availability: a, ledger: l, users: u, doctors: d, health: health, log: log}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps domain errors onto status codes. Anything unrecognised is
// logged and hidden behind a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeMsg(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeMsg(w, http.StatusForbidden, auth.ErrForbidden.Error())
	case errors.Is(err, booking.ErrInvalidBooking),
		errors.Is(err, directory.ErrInvalidEmail),
		errors.Is(err, doctor.ErrInvalidDoctor):
		writeMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, doctor.ErrExists):
		writeMsg(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeMsg(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
