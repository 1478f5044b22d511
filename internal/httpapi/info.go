package httpapi

import (
	"net/http"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
)

// ServerInfo represents the server's capabilities and configuration
type ServerInfo struct {
	APIVersion    string                      `json:"apiVersion"`
	ServerVersion string                      `json:"serverVersion"`
	ServerTime    string                      `json:"serverTime"`
	Entities      map[string]EntityCapability `json:"entities"`
	MaxBatch      int                         `json:"maxBatch"`
	Hints         SyncHints                   `json:"hints"`
}

// SyncHints provides recommendations for client behavior
type SyncHints struct {
	RecommendedBatch int    `json:"recommendedBatch"` // safe batch size
	Resolution       string `json:"resolution"`       // conflict resolution granularity
}

// EntityCapability describes capabilities for a specific entity type
type EntityCapability struct {
	Push       bool                   `json:"push"`
	Pull       bool                   `json:"pull"`
	Operations []syncengine.Operation `json:"operations"`
}

const recommendedBatch = 100

// Info handles GET /v1/sync/info
// Returns server capabilities, API version, and supported features
// This endpoint can be called without authentication to allow capability discovery
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	maxBatch := s.Engine.MaxBatch()
	hint := recommendedBatch
	if maxBatch > 0 && maxBatch < hint {
		hint = maxBatch
	}

	entities := make(map[string]EntityCapability, len(ledger.Kinds))
	for _, k := range ledger.Kinds {
		entities[k.String()] = EntityCapability{
			Push:       true,
			Pull:       true,
			Operations: []syncengine.Operation{syncengine.OpCreate, syncengine.OpUpdate, syncengine.OpDelete},
		}
	}

	writeJSON(w, http.StatusOK, ServerInfo{
		APIVersion:    "1.0",
		ServerVersion: s.Version,
		ServerTime:    syncx.RFC3339(syncx.NowMs()),
		Entities:      entities,
		MaxBatch:      maxBatch,
		Hints: SyncHints{
			RecommendedBatch: hint,
			Resolution:       "record",
		},
	})
}
