package syncengine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
)

// Payload is a kind-specific client payload
type Payload interface {
	Validate() error
}

// SyncEntity is one client mutation.
//
// Decoding never fails on item content: problems are recorded in Err so a
// single malformed item does not reject the whole batch.
type SyncEntity[D Payload] struct {
	ID              uuid.UUID    `json:"id"`
	Operation       Operation    `json:"operation"`
	ClientUpdatedAt syncx.Millis `json:"clientUpdatedAt"`
	Data            *D           `json:"data,omitempty"`

	// RawID is the id as the client sent it, echoed back for malformed items
	RawID string `json:"-"`
	Err   error  `json:"-"`
}

type wireEntity struct {
	ID              json.RawMessage `json:"id"`
	Operation       string          `json:"operation"`
	ClientUpdatedAt json.RawMessage `json:"clientUpdatedAt"`
	Data            json.RawMessage `json:"data"`
}

var (
	errMissingID        = errors.New("id is required")
	errMissingTimestamp = errors.New("clientUpdatedAt is required")
	errMissingData      = errors.New("data is required")
)

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

func (s *SyncEntity[D]) UnmarshalJSON(b []byte) error {
	*s = SyncEntity[D]{}

	var w wireEntity
	if err := json.Unmarshal(b, &w); err != nil {
		s.Err = fmt.Errorf("malformed item: %w", err)
		return nil
	}

	if !isNull(w.ID) {
		var raw string
		if err := json.Unmarshal(w.ID, &raw); err != nil {
			s.RawID = string(bytes.TrimSpace(w.ID))
		} else {
			s.RawID = raw
		}
		if id, ok := syncx.ParseUUID(s.RawID); ok {
			s.ID = id
		}
	}

	op, err := ParseOperation(w.Operation)
	if err != nil {
		s.Err = err
		return nil
	}
	s.Operation = op

	if isNull(w.ClientUpdatedAt) {
		s.Err = errMissingTimestamp
		return nil
	}
	if err := json.Unmarshal(w.ClientUpdatedAt, &s.ClientUpdatedAt); err != nil {
		s.Err = fmt.Errorf("clientUpdatedAt: %w", err)
		return nil
	}

	if !isNull(w.Data) {
		d := new(D)
		if err := json.Unmarshal(w.Data, d); err != nil {
			s.Err = fmt.Errorf("data: %w", err)
			return nil
		}
		s.Data = d
	}
	return nil
}

// Check reports why the item cannot be processed, or nil
func (s *SyncEntity[D]) Check() error {
	if s.Err != nil {
		return s.Err
	}
	if s.ID == uuid.Nil {
		if s.RawID != "" {
			return fmt.Errorf("invalid id %q", s.RawID)
		}
		return errMissingID
	}
	if _, err := ParseOperation(string(s.Operation)); err != nil {
		return err
	}
	if s.Operation == OpDelete {
		return nil
	}
	if s.Data == nil {
		return errMissingData
	}
	return (*s.Data).Validate()
}

// DisplayID is the id reported back in results
func (s *SyncEntity[D]) DisplayID() string {
	if s.ID != uuid.Nil {
		return s.ID.String()
	}
	return s.RawID
}
