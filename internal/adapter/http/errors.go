package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
)

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// writeError maps domain errors onto status codes and a JSON body.
// ErrNoData becomes an empty 204; input errors are 400; everything else
// is a 500 carrying the error text.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, domain.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Fields: verr.Fields})
		return
	}

	var berr *badRequestError
	if errors.As(err, &berr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: berr.Error()})
		return
	}

	logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
}

// badRequestError is a malformed request that is not a report field error.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}
