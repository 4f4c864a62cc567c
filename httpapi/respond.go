package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clipstream/auth"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeEngineError maps engine errors onto HTTP statuses. Every
// authentication failure collapses to the same 401 body so callers cannot
// distinguish a bad password from a revoked token.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenMissing),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenStale),
		errors.Is(err, auth.ErrSessionAbsent):
		writeError(w, http.StatusUnauthorized, "not authorized")
	case errors.Is(err, auth.ErrAccountExists):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, auth.ErrAccountInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
