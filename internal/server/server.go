// Package server provides the HTTP server for the facefeed video stream.
package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Routes served by the Server.
const (
	IndexPath  = "/"
	StreamPath = "/video_feed"
	HealthPath = "/api/health"
)

const indexHTML = "<h2>Optimized Video Feed with Face Detection</h2><img src='" + StreamPath + "' width='640'>"

// Config holds the server configuration.
type Config struct {
	Feed    Feed
	Quality int
}

// Server represents the HTTP server for the facefeed application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Quality == 0 {
		config.Quality = DefaultQuality
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc(HealthPath, s.handleHealth)
	s.mux.HandleFunc(IndexPath, s.handleIndex)

	// The stream endpoint needs frames to serve
	if s.config.Feed != nil {
		s.mux.Handle(StreamPath, NewStreamHandler(s.config.Feed, s.config.Quality))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleIndex serves a page embedding the video feed.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != IndexPath {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
