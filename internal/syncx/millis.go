package syncx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Millis is a UTC instant expressed as Unix milliseconds.
// On the wire it is an RFC3339 string; on input it also accepts
// numeric milliseconds, either as a JSON number or a string.
type Millis int64

// Epoch is the watermark of a device that has never synced
const Epoch Millis = 0

// FromTime truncates t to millisecond precision
func FromTime(t time.Time) Millis {
	return Millis(t.UTC().UnixMilli())
}

// Time converts back to a UTC time.Time
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

func (m Millis) String() string {
	return RFC3339(int64(m))
}

// After reports whether m is strictly later than o
func (m Millis) After(o Millis) bool {
	return m > o
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Millis) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	// Bare JSON number: milliseconds
	if len(b) > 0 && b[0] != '"' {
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", b, err)
		}
		*m = Millis(ms)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ms, ok := ParseTimeToMs(s)
	if !ok {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	*m = Millis(ms)
	return nil
}

// RFC3339 converts Unix milliseconds to RFC3339 timestamp string
func RFC3339(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// NowMs returns current Unix milliseconds timestamp (UTC)
func NowMs() int64 {
	return time.Now().UTC().UnixMilli()
}
