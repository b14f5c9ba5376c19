package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"broadphase/internal/config"
)

// Server bundles the router, websocket hub and HTTP listener.
type Server struct {
	hub    *WebSocketHub
	router http.Handler
	srv    *http.Server
}

// NewServer wires the public HTTP surface around an engine, applying the
// configured connection and spawn limits.
func NewServer(engine EngineInterface, limits config.ResourceLimits) *Server {
	hub := NewWebSocketHub(limits.MaxWSConnections, limits.MaxWSPerIP)
	go hub.Run()

	router := NewRouter(RouterConfig{
		Engine:          engine,
		Hub:             hub,
		MaxSpawnPerCall: limits.MaxSpawnPerCall,
	})

	return &Server{hub: hub, router: router}
}

// Hub exposes the websocket hub so the tick loop can feed it snapshots.
func (s *Server) Hub() *WebSocketHub {
	return s.hub
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving on the given address. Blocks until the listener
// fails or the server is stopped.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("API server listening on %s", addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
