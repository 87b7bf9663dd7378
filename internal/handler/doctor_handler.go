package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-booking-api/internal/model"
)

func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var d model.Doctor
	if err := decode(w, r, &d); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.doctors.Create(r.Context(), d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	list, err := h.doctors.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []model.Doctor{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	n, err := h.doctors.Delete(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deletedCount": n})
}
