package syncengine

import (
	"context"
	"fmt"
)

// Status reports the device's watermark and whether the user's data changed
// after it. A push stamps its mutations and the activity log with its own
// ServerSyncAt, so the pushing device is not reported as behind.
func (e *Engine) Status(ctx context.Context, userID, deviceID string) (*StatusResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	c, hasCursor, err := e.cursors.GetCursor(ctx, userID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	last, hasMutation, err := e.activity.LastMutation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}

	resp := &StatusResponse{}
	if hasCursor {
		at := c.LastSyncAt
		resp.LastSyncAt = &at
	}
	resp.HasUnsyncedChanges = hasMutation && (!hasCursor || last.After(c.LastSyncAt))
	return resp, nil
}
