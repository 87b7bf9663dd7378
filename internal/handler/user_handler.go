package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-booking-api/internal/directory"
	"clinic-booking-api/internal/model"
)

type upsertResponse struct {
	Result struct {
		Created bool `json:"created"`
	} `json:"result"`
	Token string `json:"token"`
}

// UpsertUser handles PUT /user/{email}. A role field in the body is dropped.
func (h *Handler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var p directory.Profile
	// an empty body just refreshes the credential
	if err := decode(w, r, &p); err != nil && !errors.Is(err, io.EOF) {
		writeMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.users.Upsert(r.Context(), chi.URLParam(r, "email"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var out upsertResponse
	out.Result.Created = res.Created
	out.Token = res.Token
	writeJSON(w, http.StatusOK, out)
}

// ListUsers handles GET /user.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GrantAdmin handles PUT /user/admin/{email}.
func (h *Handler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.GrantAdmin(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// IsAdmin handles GET /admin/{email}.
func (h *Handler) IsAdmin(w http.ResponseWriter, r *http.Request) {
	ok, err := h.users.IsAdmin(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"admin": ok})
}
