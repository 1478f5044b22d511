package syncx

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ParseUUID parses a UUID string
func ParseUUID(s string) (uuid.UUID, bool) {
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ParseTimeToMs converts various time formats to Unix milliseconds
// Accepts: RFC3339, numeric milliseconds (as string), empty (returns 0)
func ParseTimeToMs(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}

	// Try RFC3339 first
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().UnixMilli(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().UnixMilli(), true
	}

	// Try numeric milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms >= 0 {
		return ms, true
	}

	return 0, false
}

// ParseWatermark parses an optional watermark query value.
// Empty input yields (nil, true): the caller falls back to the stored cursor.
func ParseWatermark(s string) (*Millis, bool) {
	if s == "" {
		return nil, true
	}
	ms, ok := ParseTimeToMs(s)
	if !ok {
		return nil, false
	}
	m := Millis(ms)
	return &m, true
}
