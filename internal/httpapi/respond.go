package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes a JSON error carrying the request's correlation id
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg, CorrelationID: GetCorrelationID(r.Context())})
}

// writeEngineError maps a call-level engine error onto a status code
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())
	switch {
	case errors.Is(err, syncengine.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, syncengine.ErrBatchTooLarge):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Msg("sync call timed out")
		writeError(w, r, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		logger.Warn().Err(err).Msg("sync call cancelled")
		writeError(w, r, http.StatusServiceUnavailable, "request cancelled")
	default:
		logger.Error().Err(err).Msg("sync call failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
