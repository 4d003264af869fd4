package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/ipatlas/ipatlas/atlas"
)

type handlers struct {
	service *atlas.Service
}

func (h handlers) lookupIP(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LookupAll(chi.URLParam(r, "ip"))

	switch {
	case errors.Is(err, atlas.ErrMalformedIP):
		abort(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, atlas.ErrNotLoaded):
		abort(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		abort(w, http.StatusInternalServerError, err.Error())
		return
	}

	json.NewEncoder(w).Encode(result) // nolint: errcheck
}

func (h handlers) info(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.service.Loaded()) // nolint: errcheck
}
