package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/portfolio"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps the error taxonomy onto HTTP statuses. "Fix your
// portfolio" conditions return 4xx, upstream data failures 502, everything
// unexpected 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var invalid *contracts.InvalidRequestError
	var holdings *contracts.InsufficientHoldingsError
	var history *contracts.InsufficientHistoryError
	var infeasible *contracts.InfeasibleError
	var provider *contracts.DataProviderError

	switch {
	case errors.As(err, &invalid):
		respondError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, portfolio.ErrNotFound):
		respondError(w, http.StatusNotFound, "Holding not found")
	case errors.As(err, &holdings):
		respondError(w, http.StatusUnprocessableEntity, holdings.Error())
	case errors.As(err, &history):
		respondError(w, http.StatusUnprocessableEntity, history.Error())
	case errors.As(err, &infeasible):
		respondError(w, http.StatusUnprocessableEntity, infeasible.Error())
	case errors.As(err, &provider):
		respondError(w, http.StatusBadGateway, provider.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
