// Package web provides the HTTP server for browsing a grit store and
// driving a running agent from outside the process (spec.md §6, SPEC_FULL.md
// §4.12): object/ref inspection, query-path descent, message injection, and
// live event streaming over WebSocket/SSE.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/log"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/query"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"
)

// Config configures a Server.
type Config struct {
	Addr string

	Store gritstore.Store

	// Query runs stateless wit_query handlers for the /actors/{id}/query
	// endpoint. Nil disables that route.
	Query *query.Executor

	// Root, if set, lets /actors/{id}/inject deliver messages into the
	// running agent and /messages-sse stream its live InboundEvents.
	Root *rootexec.RootExecutor

	Log log.Logger
}

// Server is the HTTP server fronting a grit store and (optionally) a live
// agent runtime.
type Server struct {
	cfg Config
	log log.Logger
	mux *http.ServeMux
	srv *http.Server
	hub *Hub
}

// NewServer builds a Server and registers its routes. Call Start to begin
// serving.
func NewServer(cfg Config) *Server {
	l := cfg.Log
	if l == nil {
		l = log.Disabled()
	}

	s := &Server{
		cfg: cfg,
		log: l,
		mux: http.NewServeMux(),
	}

	if cfg.Root != nil {
		s.hub = NewHub(cfg.Root)
		go s.hub.Run(context.Background())
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /", s.handleIndex)
	s.mux.HandleFunc("GET /objects/{id}", s.handleGetObject)
	s.mux.HandleFunc("POST /objects", s.handlePutObject)
	s.mux.HandleFunc("GET /refs", s.handleListRefs)
	s.mux.HandleFunc("GET /refs/{name...}", s.handleGetRef)
	s.mux.HandleFunc("PUT /refs/{name...}", s.handleSetRef)
	s.mux.HandleFunc("DELETE /refs/{name...}", s.handleDeleteRef)
	s.mux.HandleFunc("GET /actors/{id}/query/{name}", s.handleQuery)
	s.mux.HandleFunc("POST /actors/{id}/inject", s.handleInject)

	if s.hub != nil {
		s.mux.HandleFunc("GET /ws", s.handleWebSocket)
		s.mux.HandleFunc("GET /messages-sse", s.handleSSE)
	}
}

// Start begins serving HTTP in a background goroutine.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lnErrCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lnErrCh <- err
		}
	}()
	s.log.InfoS(context.Background(), "web server listening", "addr", s.cfg.Addr)

	select {
	case err := <-lnErrCh:
		return fmt.Errorf("web: serving: %w", err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully stops the server and its hub.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Stop()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Mux exposes the router for tests that want to drive it via
// httptest.NewServer without a real listener.
func (s *Server) Mux() http.Handler { return s.mux }
