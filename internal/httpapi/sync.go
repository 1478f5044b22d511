package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/erauner12/finsync-api/internal/auth"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/rs/zerolog/log"
)

// Push handles POST /v1/sync/push
func (s *Server) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	maxBytes := s.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	var req syncengine.PushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		logger.Warn().Err(err).Msg("invalid push body")
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	resp, err := s.Engine.Push(ctx, auth.UserID(ctx), &req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Pull handles GET /v1/sync/pull?lastSyncAt=&deviceId=
func (s *Server) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	since, ok := syncx.ParseWatermark(q.Get("lastSyncAt"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid lastSyncAt")
		return
	}

	resp, err := s.Engine.Pull(ctx, auth.UserID(ctx), q.Get("deviceId"), since)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /v1/sync/status?deviceId=
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := s.Engine.Status(ctx, auth.UserID(ctx), r.URL.Query().Get("deviceId"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
