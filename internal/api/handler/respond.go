package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mavuno/agrolink/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondList wraps a collection the way every list endpoint returns it.
func respondList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": len(items),
	})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrNoGroupBuy),
		errors.Is(err, domain.ErrNoDelivery):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrInvalidImage):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDiagnoserUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
