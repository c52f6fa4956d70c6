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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"floorplanner/internal/config"
	"floorplanner/internal/domain"
	applog "floorplanner/internal/log"
	"floorplanner/internal/version"
)

const devSecret = "dev-secret-change-me"

// ServerOptions wires the HTTP surface to its stores.
type ServerOptions struct {
	Store      MetadataStore
	Objects    *ObjectStore
	AuthSecret string
	// PublicURL prefixes object URLs; empty derives it from the request host.
	PublicURL string
	BodyLimit string // echo size string, e.g. "20M"
}

type server struct {
	store     MetadataStore
	objects   *ObjectStore
	secret    string
	publicURL string
}

// NewServer builds the echo instance with all routes registered.
func NewServer(opts ServerOptions) *echo.Echo {
	s := &server{
		store:     opts.Store,
		objects:   opts.Objects,
		secret:    opts.AuthSecret,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}
	if s.secret == "" {
		s.secret = devSecret
		applog.WithComponent("backend").Warn("auth secret not set; using insecure dev secret")
	}
	limit := opts.BodyLimit
	if limit == "" {
		limit = "20M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			applog.WithComponent("backend").Error("handler panic",
				slog.String("path", c.Request().URL.Path), slog.Any("err", err))
			return err
		},
	}))
	e.Use(middleware.BodyLimit(limit))
	e.Use(requestLogger())

	e.GET("/healthz", s.handleHealth)
	e.GET("/readyz", s.handleReady)
	e.GET("/version", s.handleVersion)
	e.POST("/api/auth/token", s.handleToken)

	// Objects are fetched by URL from vendors' clients, so reads are public.
	e.GET("/api/objects/*", s.handleGetObject)

	api := e.Group("/api", requireAuth(s.secret))
	api.GET("/events", s.handleListEvents)
	api.POST("/events", s.handleCreateEvent)
	api.GET("/vendors", s.handleListVendors)
	api.POST("/vendors", s.handleCreateVendor)
	api.PUT("/objects/*", s.handlePutObject)
	api.PUT("/events/:eventId/floorplans/:recipientId", s.handlePutFloorPlan)
	api.GET("/events/:eventId/floorplans/:recipientId", s.handleGetFloorPlan)
	return e
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if c.Request().URL.Path == "/healthz" {
				return err
			}
			applog.WithComponent("backend").Debug("request",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", c.Response().Status),
				slog.Duration("took", time.Since(start)))
			return err
		}
	}
}

func (s *server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *server) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		return NewServiceUnavailableError("db not ready")
	}
	return c.String(http.StatusOK, "ready")
}

func (s *server) handleVersion(c echo.Context) error {
	return c.String(http.StatusOK, "floorplanner "+version.String())
}

type tokenRequest struct {
	Subject    string `json:"subject"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// TokenResponse is the body of POST /api/auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (s *server) handleToken(c echo.Context) error {
	var req tokenRequest
	// An empty body issues a default dev token.
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid token request", err)
		}
	}
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := SignToken(s.secret, req.Subject, exp)
	if err != nil {
		return NewInternalError("sign token", err)
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: tok, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

func (s *server) handleListEvents(c echo.Context) error {
	list, err := s.store.ListEvents(c.Request().Context())
	if err != nil {
		return NewInternalError("list events", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *server) handleCreateEvent(c echo.Context) error {
	var ev domain.Event
	if err := c.Bind(&ev); err != nil {
		return NewBadRequestError("invalid event", err)
	}
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Name == "" {
		return NewValidationError("name")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.PlannerID == "" {
		ev.PlannerID = subjectOf(c)
	}
	out, err := s.store.CreateEvent(c.Request().Context(), ev)
	if err != nil {
		return NewInternalError("create event", err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *server) handleListVendors(c echo.Context) error {
	list, err := s.store.ListVendors(c.Request().Context())
	if err != nil {
		return NewInternalError("list vendors", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *server) handleCreateVendor(c echo.Context) error {
	var v domain.Vendor
	if err := c.Bind(&v); err != nil {
		return NewBadRequestError("invalid vendor", err)
	}
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return NewValidationError("name")
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	out, err := s.store.CreateVendor(c.Request().Context(), v)
	if err != nil {
		return NewInternalError("create vendor", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// ObjectResponse is the body of a successful object upload.
type ObjectResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

func (s *server) handlePutObject(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("read body", err)
	}
	if len(data) == 0 {
		return NewValidationError("body")
	}
	p, err := s.objects.Put(objectParam(c), data)
	if err != nil {
		if errors.Is(err, ErrInvalidPath) {
			return NewBadRequestError("invalid object path", nil)
		}
		return NewInternalError("store object", err)
	}
	applog.WithComponent("backend").Info("object stored",
		slog.String("path", p), slog.Int("bytes", len(data)), slog.String("by", subjectOf(c)))
	return c.JSON(http.StatusCreated, ObjectResponse{Path: p, URL: s.objectURL(c, p)})
}

func (s *server) handleGetObject(c echo.Context) error {
	p := objectParam(c)
	data, ct, err := s.objects.Get(p)
	switch {
	case errors.Is(err, ErrInvalidPath):
		return NewBadRequestError("invalid object path", nil)
	case errors.Is(err, ErrNotFound):
		return NewNotFoundError("object", p)
	case err != nil:
		return NewInternalError("read object", err)
	}
	return c.Blob(http.StatusOK, ct, data)
}

func objectParam(c echo.Context) string {
	p := c.Param("*")
	if u, err := url.PathUnescape(p); err == nil {
		return u
	}
	return p
}

func (s *server) objectURL(c echo.Context, p string) string {
	base := s.publicURL
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + "/api/objects/" + p
}

func (s *server) handlePutFloorPlan(c echo.Context) error {
	var rec domain.FloorPlanRecord
	if err := c.Bind(&rec); err != nil {
		return NewBadRequestError("invalid floor plan record", err)
	}
	rec.EventID = c.Param("eventId")
	rec.RecipientID = c.Param("recipientId")
	switch {
	case rec.Path == "":
		return NewValidationError("path")
	case rec.URL == "":
		return NewValidationError("url")
	}
	if rec.UploadedBy == "" {
		rec.UploadedBy = subjectOf(c)
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	if err := s.store.PutFloorPlan(c.Request().Context(), rec); err != nil {
		return NewInternalError("save floor plan record", err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *server) handleGetFloorPlan(c echo.Context) error {
	eventID, recipientID := c.Param("eventId"), c.Param("recipientId")
	rec, err := s.store.GetFloorPlan(c.Request().Context(), eventID, recipientID)
	if errors.Is(err, ErrNotFound) {
		return NewNotFoundError("floor plan", eventID+"/"+recipientID)
	}
	if err != nil {
		return NewInternalError("load floor plan record", err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Serve opens the stores named by cfg and runs the server until ctx is done,
// then shuts down gracefully.
func Serve(ctx context.Context, cfg config.ServerConfig) error {
	logger := applog.WithOperation(applog.WithComponent("backend"), "serve")
	store, err := OpenMetadataStore(ctx, cfg.DBDriver, cfg.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("db close", slog.Any("err", err))
		}
	}()
	objDir := cfg.ObjectDir
	if objDir == "" {
		objDir = "objects"
	}
	objects, err := NewObjectStore(objDir)
	if err != nil {
		return err
	}
	e := NewServer(ServerOptions{
		Store:      store,
		Objects:    objects,
		AuthSecret: cfg.AuthSecret,
		PublicURL:  cfg.PublicURL,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr), slog.String("db", cfg.DBDriver))
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return e.Shutdown(sctx)
}
