// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package httpapi exposes the registration subsystem over JSON HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/selfreg/selfreg/internal/auth"
	"github.com/selfreg/selfreg/internal/blob"
	"github.com/selfreg/selfreg/internal/member"
	"github.com/selfreg/selfreg/internal/observability"
)

// Server serves the registration API.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool

	auth       *auth.Service
	members    member.Repository
	photos     blob.Store
	formTokens *FormTokens
	metrics     *observability.Metrics
	logger      *slog.Logger
	pageSize    int
	rememberFor time.Duration
}

// Options carries Server construction parameters.
type Options struct {
	Addr       string
	Auth       *auth.Service
	Members    member.Repository
	Photos     blob.Store
	FormTokens *FormTokens
	Metrics    *observability.Metrics
	Logger     *slog.Logger

	// PageSize is the member-list page size; defaults to 20.
	PageSize int

	// RememberFor is the persistent-token cookie lifetime; defaults to
	// 30 days.
	RememberFor time.Duration
}

// NewServer creates the API server.
func NewServer(opts Options) (*Server, error) {
	switch {
	case opts.Auth == nil:
		return nil, oops.Code("HTTP_INIT_FAILED").Errorf("auth service is required")
	case opts.Members == nil:
		return nil, oops.Code("HTTP_INIT_FAILED").Errorf("member repository is required")
	case opts.Photos == nil:
		return nil, oops.Code("HTTP_INIT_FAILED").Errorf("photo store is required")
	case opts.FormTokens == nil:
		return nil, oops.Code("HTTP_INIT_FAILED").Errorf("form token issuer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	rememberFor := opts.RememberFor
	if rememberFor <= 0 {
		rememberFor = 30 * 24 * time.Hour
	}
	return &Server{
		addr:        opts.Addr,
		auth:        opts.Auth,
		members:     opts.Members,
		photos:      opts.Photos,
		formTokens:  opts.FormTokens,
		metrics:     opts.Metrics,
		logger:      logger,
		pageSize:    pageSize,
		rememberFor: rememberFor,
	}, nil
}

// Handler builds the route table. Exposed for tests via httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/form-token", s.handleFormToken)
	mux.HandleFunc("GET /api/email-exists", s.handleEmailExists)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/members", s.handleMemberList)

	mux.Handle("POST /api/photo", limitBody(s.requireFormToken(ActionPhoto, s.handlePhotoUpload)))
	mux.Handle("POST /api/register", s.requireFormToken(ActionRegister, s.handleRegister))
	mux.Handle("POST /api/login", s.requireFormToken(ActionLogin, s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.Handle("POST /api/members/delete", s.requireFormToken(ActionMemberDelete, s.handleMemberDelete))

	return s.instrument(mux)
}

// Start begins serving. It returns an error channel that receives any
// serve error after startup; the channel closes on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the listen address, or "" when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
