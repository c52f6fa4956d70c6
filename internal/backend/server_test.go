/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplanner/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	objects, err := NewObjectStore(t.TempDir())
	require.NoError(t, err)
	e := NewServer(ServerOptions{Store: openSQLiteMeta(t), Objects: objects, AuthSecret: "test-secret"})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func authedClient(t *testing.T, srv *httptest.Server, subject string) *Client {
	t.Helper()
	tok, err := NewClient(srv.URL, "").IssueToken(context.Background(), subject, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	return NewClient(srv.URL+"/", tok.Token, WithTimeout(5*time.Second))
}

func apiStatus(t *testing.T, err error) *APIError {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
	return apiErr
}

func TestServer_HealthAndVersion(t *testing.T) {
	srv := newTestServer(t)
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(b))
	}
	resp, err := http.Get(srv.URL + "/version")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(b), "floorplanner")
}

func TestServer_RequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	_, err := NewClient(srv.URL, "").ListEvents(context.Background())
	apiErr := apiStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)

	_, err = NewClient(srv.URL, "garbage.token").ListVendors(context.Background())
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err).Status)
}

func TestServer_EventsAndVendors(t *testing.T) {
	srv := newTestServer(t)
	c := authedClient(t, srv, "planner-1")
	ctx := context.Background()

	events, err := c.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	ev, err := c.CreateEvent(ctx, domain.Event{Name: "Summer Gala", Date: "2026-07-01"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "planner-1", ev.PlannerID)

	_, err = c.CreateVendor(ctx, domain.Vendor{ID: "ven-1", Name: "Bloom Florists", Category: "florist"})
	require.NoError(t, err)

	events, err = c.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev, events[0])

	vendors, err := c.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, "Bloom Florists", vendors[0].Name)

	_, err = c.CreateEvent(ctx, domain.Event{Name: "  "})
	apiErr := apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
}

func TestServer_UploadAndRecord(t *testing.T) {
	srv := newTestServer(t)
	c := authedClient(t, srv, "planner-1")
	ctx := context.Background()

	path := "floorplans/evt-1/ven-1/floorplan.png"
	url, err := c.UploadObject(ctx, path, "image/png", []byte("\x89PNG fake"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/objects/"+path, url)

	// Object reads are public.
	resp, err := http.Get(url)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "\x89PNG fake", string(b))

	_, err = c.GetFloorPlanRecord(ctx, "evt-1", "ven-1")
	apiErr := apiStatus(t, err)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	require.NoError(t, c.PutFloorPlanRecord(ctx, domain.FloorPlanRecord{EventID: "evt-1", RecipientID: "ven-1", Path: path, URL: url}))
	rec, err := c.GetFloorPlanRecord(ctx, "evt-1", "ven-1")
	require.NoError(t, err)
	assert.Equal(t, url, rec.URL)
	assert.Equal(t, "planner-1", rec.UploadedBy)
	assert.False(t, rec.UploadedAt.IsZero())

	err = c.PutFloorPlanRecord(ctx, domain.FloorPlanRecord{EventID: "evt-1", RecipientID: "ven-1", Path: path})
	assert.Equal(t, "VALIDATION_ERROR", apiStatus(t, err).Code)
}

func TestServer_UploadRejectsBadPath(t *testing.T) {
	srv := newTestServer(t)
	c := authedClient(t, srv, "planner-1")
	_, err := c.UploadObject(context.Background(), "a//b.png", "image/png", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err).Status)

	_, err = NewClient(srv.URL, "").UploadObject(context.Background(), "a/b.png", "image/png", []byte("x"))
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err).Status)
}

func TestServer_PublicURL(t *testing.T) {
	objects, err := NewObjectStore(t.TempDir())
	require.NoError(t, err)
	e := NewServer(ServerOptions{Store: openSQLiteMeta(t), Objects: objects, AuthSecret: "k", PublicURL: "https://cdn.example.test/"})
	srv := httptest.NewServer(e)
	defer srv.Close()
	tok, err := SignToken("k", "p", time.Now().Add(time.Minute))
	require.NoError(t, err)
	url, err := NewClient(srv.URL, tok).UploadObject(context.Background(), "x/y.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.test/api/objects/x/y.png", url)
}
