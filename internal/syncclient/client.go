// Package syncclient is a Go client for the sync HTTP API.
package syncclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/erauner12/finsync-api/internal/httpapi"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/go-resty/resty/v2"
)

// Client talks to one server on behalf of one device
type Client struct {
	http     *resty.Client
	deviceID string
}

// New builds a client for baseURL. A missing scheme defaults to http.
func New(baseURL, deviceID string, timeout time.Duration) (*Client, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: c, deviceID: deviceID}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(strings.TrimSpace(token))
}

// SetDebugSubject authenticates via X-Debug-Sub against a dev-mode server
func (c *Client) SetDebugSubject(sub string) {
	c.http.SetHeader("X-Debug-Sub", sub)
}

// DeviceID is the device this client pushes and pulls as
func (c *Client) DeviceID() string {
	return c.deviceID
}

// Push sends a batch. An empty req.DeviceID is filled with the client's.
func (c *Client) Push(ctx context.Context, req *syncengine.PushRequest) (*syncengine.PushResponse, error) {
	if req.DeviceID == "" {
		req.DeviceID = c.deviceID
	}

	var out syncengine.PushResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/v1/sync/push")
	if err != nil {
		return nil, fmt.Errorf("push request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pull fetches changes after lastSyncAt, or after the stored cursor when nil
func (c *Client) Pull(ctx context.Context, lastSyncAt *syncx.Millis) (*syncengine.PullResponse, error) {
	r := c.http.R().SetContext(ctx)
	if c.deviceID != "" {
		r.SetQueryParam("deviceId", c.deviceID)
	}
	if lastSyncAt != nil {
		r.SetQueryParam("lastSyncAt", strconv.FormatInt(int64(*lastSyncAt), 10))
	}

	var out syncengine.PullResponse
	resp, err := r.SetResult(&out).Get("/v1/sync/pull")
	if err != nil {
		return nil, fmt.Errorf("pull request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status reports this device's watermark and whether it is behind
func (c *Client) Status(ctx context.Context) (*syncengine.StatusResponse, error) {
	var out syncengine.StatusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("deviceId", c.deviceID).
		SetResult(&out).
		Get("/v1/sync/status")
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info fetches the server's capabilities
func (c *Client) Info(ctx context.Context) (*httpapi.ServerInfo, error) {
	var out httpapi.ServerInfo
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/v1/sync/info")
	if err != nil {
		return nil, fmt.Errorf("info request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}
