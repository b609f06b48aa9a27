package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
)

// response is the envelope of every API reply.
type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, response{Status: "success", Message: msg, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Status: "error", Message: msg})
}

func mapError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrMissingID),
		errors.Is(err, ledger.ErrUnknownLedger),
		errors.Is(err, ledger.ErrUnknownKind),
		errors.Is(err, ledger.ErrInvalidEntryType),
		errors.Is(err, ledger.ErrInvalidDate),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrEmptyParticulars),
		errors.Is(err, ledger.ErrNegativeAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
