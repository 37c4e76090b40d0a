// Package apiclient talks to the canteen REST API and its push channel on
// behalf of a dashboard.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"canteen/internal/dto"
	"canteen/internal/identity"
)

const headerPollInterval = "X-Poll-Interval"

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	TraceID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL    string
	actor      identity.Actor
	httpClient *http.Client
}

func New(baseURL string, actor identity.Actor, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		actor:      actor,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetOrder resolves ref as an id, order number or barcode. The second
// result is the poll interval the server advertises, zero if none.
func (c *Client) GetOrder(ctx context.Context, ref string) (*dto.OrderDTO, time.Duration, error) {
	var resp dto.OrderResponse
	header, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(ref), nil, &resp)
	if err != nil {
		return nil, 0, err
	}

	var interval time.Duration
	if secs, err := strconv.Atoi(header.Get(headerPollInterval)); err == nil && secs > 0 {
		interval = time.Duration(secs) * time.Second
	}
	return &resp.Order, interval, nil
}

func (c *Client) ListOrders(ctx context.Context, status string) ([]dto.OrderDTO, error) {
	path := "/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var resp dto.OrdersResponse
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) (http.Header, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setIdentity(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp dto.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Message
			apiErr.TraceID = errResp.TraceID
		}
		return resp.Header, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}
	return resp.Header, nil
}

func (c *Client) setIdentity(h http.Header) {
	if c.actor.ID != "" {
		h.Set(identity.HeaderUserID, c.actor.ID)
	}
	if c.actor.Name != "" {
		h.Set(identity.HeaderUserName, c.actor.Name)
	}
	if c.actor.Role != "" {
		h.Set(identity.HeaderUserRole, string(c.actor.Role))
	}
}
