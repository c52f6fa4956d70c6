/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"floorplanner/internal/config"
	"floorplanner/internal/domain"
)

// Client is the HTTP client for the floor-plan backend: event and vendor
// listings, object upload and the floor-plan metadata record.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithInsecureTLS skips certificate verification (self-signed dev servers).
func WithInsecureTLS() ClientOption {
	return func(c *Client) {
		c.client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in via config
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewClientFromConfig applies the backend section of the user config.
func NewClientFromConfig(cfg config.BackendConfig, token string) *Client {
	opts := []ClientOption{WithTimeout(cfg.Timeout())}
	if cfg.TLSInsecure {
		opts = append(opts, WithInsecureTLS())
	}
	return NewClient(cfg.BaseURL, token, opts...)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, u.Path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, dest any) error {
	if in == nil {
		return c.do(ctx, method, path, "", nil, dest)
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(b), dest)
}

// decodeAPIError turns a non-2xx response into an *APIError, falling back to
// the status line when the body is not a structured error.
func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{}
	if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Code == "" {
		apiErr = &APIError{Code: "HTTP_ERROR", Message: resp.Status}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

// IssueToken requests a bearer token for subject; ttl <= 0 uses the server default.
func (c *Client) IssueToken(ctx context.Context, subject string, ttl time.Duration) (TokenResponse, error) {
	var out TokenResponse
	req := tokenRequest{Subject: subject, TTLSeconds: int64(ttl / time.Second)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &out); err != nil {
		return TokenResponse{}, err
	}
	return out, nil
}

func (c *Client) ListEvents(ctx context.Context) ([]domain.Event, error) {
	var list []domain.Event
	if err := c.doJSON(ctx, http.MethodGet, "/api/events", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	var out domain.Event
	if err := c.doJSON(ctx, http.MethodPost, "/api/events", ev, &out); err != nil {
		return domain.Event{}, err
	}
	return out, nil
}

func (c *Client) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	var list []domain.Vendor
	if err := c.doJSON(ctx, http.MethodGet, "/api/vendors", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	var out domain.Vendor
	if err := c.doJSON(ctx, http.MethodPost, "/api/vendors", v, &out); err != nil {
		return domain.Vendor{}, err
	}
	return out, nil
}

// UploadObject stores data at path and returns its retrievable URL.
func (c *Client) UploadObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	var out ObjectResponse
	if err := c.do(ctx, http.MethodPut, "/api/objects/"+escapePath(path), contentType, bytes.NewReader(data), &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// PutFloorPlanRecord writes the record for (rec.EventID, rec.RecipientID).
func (c *Client) PutFloorPlanRecord(ctx context.Context, rec domain.FloorPlanRecord) error {
	p := floorPlanPath(rec.EventID, rec.RecipientID)
	return c.doJSON(ctx, http.MethodPut, p, rec, nil)
}

func (c *Client) GetFloorPlanRecord(ctx context.Context, eventID, recipientID string) (domain.FloorPlanRecord, error) {
	var rec domain.FloorPlanRecord
	if err := c.doJSON(ctx, http.MethodGet, floorPlanPath(eventID, recipientID), nil, &rec); err != nil {
		return domain.FloorPlanRecord{}, err
	}
	return rec, nil
}

func floorPlanPath(eventID, recipientID string) string {
	return fmt.Sprintf("/api/events/%s/floorplans/%s", url.PathEscape(eventID), url.PathEscape(recipientID))
}

func escapePath(p string) string {
	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
