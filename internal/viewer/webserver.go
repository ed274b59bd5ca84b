// Package viewer serves the live 2D view of the most recent point cloud:
// an auto-refreshing x/z scatter, a PNG snapshot plot, and JSON status.
package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/corten-vision/range.view/internal/pointcloud"
)

// Config contains configuration options for the viewer web server.
type Config struct {
	Address       string // HTTP listen address
	Source        string // frame source description for the status page
	MaxPlotPoints int    // scatter downsample budget (default 8000)
}

// Server handles the HTTP interface for the acquisition loop. The loop
// pushes each cycle's cloud via Publish; handlers read the latest snapshot
// under a mutex.
type Server struct {
	cfg    Config
	server *http.Server

	mu       sync.Mutex
	cloud    pointcloud.Cloud
	summary  pointcloud.Summary
	frameID  uint32
	captured time.Time
	frames   int64
	started  time.Time
}

// NewServer creates a viewer server with the provided configuration.
func NewServer(cfg Config) *Server {
	if cfg.MaxPlotPoints <= 0 {
		cfg.MaxPlotPoints = 8000
	}
	s := &Server{
		cfg:     cfg,
		started: time.Now(),
	}
	s.server = &http.Server{
		Addr:    cfg.Address,
		Handler: s.setupRoutes(),
	}
	return s
}

// Publish replaces the displayed cloud with the latest cycle's result.
func (s *Server) Publish(frameID uint32, captured time.Time, cloud pointcloud.Cloud, summary pointcloud.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cloud = cloud
	s.summary = summary
	s.frameID = frameID
	s.captured = captured
	s.frames++
}

// snapshot returns the current display state.
func (s *Server) snapshot() (pointcloud.Cloud, pointcloud.Summary, uint32, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloud, s.summary, s.frameID, s.captured
}

// Start begins the HTTP server and blocks until the context is cancelled,
// then shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting viewer HTTP server on %s", s.cfg.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start viewer server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down viewer HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("viewer server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			log.Printf("viewer server force close error: %v", err)
		}
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleStatus)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/scatter", s.handleScatter)
	mux.HandleFunc("/plot.png", s.handlePlotPNG)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	Source        string             `json:"source"`
	FrameID       uint32             `json:"frame_id"`
	Captured      time.Time          `json:"captured"`
	FramesShown   int64              `json:"frames_shown"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Summary       pointcloud.Summary `json:"summary"`
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statusResponse{
		Source:        s.cfg.Source,
		FrameID:       s.frameID,
		Captured:      s.captured,
		FramesShown:   s.frames,
		UptimeSeconds: time.Since(s.started).Seconds(),
		Summary:       s.summary,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

const statusHTML = `<!DOCTYPE html>
<html>
<head><title>range.view</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
a { color: #6ece58; }
td { padding: 0 1em 0 0; }
</style>
</head>
<body>
<h1>range.view</h1>
<table>
<tr><td>source</td><td>%s</td></tr>
<tr><td>frame</td><td>%d</td></tr>
<tr><td>points</td><td>%d</td></tr>
<tr><td>z range</td><td>%.2f .. %.2f</td></tr>
</table>
<p><a href="/scatter">live scatter</a> | <a href="/plot.png">png snapshot</a> | <a href="/api/status">status json</a></p>
<p>press 'q' in the acquisition terminal to stop.</p>
</body>
</html>`

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	_, summary, frameID, _ := s.snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, statusHTML, s.cfg.Source, frameID, summary.Points, summary.MinZ, summary.MaxZ)
}
