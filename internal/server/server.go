package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/metrics"
	"github.com/pulsehub/channel-pulse/internal/pipeline"
)

// Runner starts a pipeline run and returns its event stream.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) <-chan pipeline.Event
}

// Server exposes the analysis pipeline over HTTP.
type Server struct {
	cfg        *config.Config
	runner     Runner
	httpServer *http.Server
	upgrader   websocket.Upgrader
	startTime  time.Time
	logger     *slog.Logger
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// AnalyzeRequest represents an analysis request body
type AnalyzeRequest struct {
	SourceRef string `json:"source_ref"`
}

// New creates the HTTP server.
func New(cfg *config.Config, runner Runner, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		startTime: time.Now(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/analyze", s.analyzeHandler)
	mux.HandleFunc("/ws/analyze", s.wsAnalyzeHandler)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: analyze responses stream for the life of a run
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// analyzeHandler streams pipeline events as Server-Sent Events.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.SourceRef == "" {
		http.Error(w, "source_ref required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	events := s.runner.Run(r.Context(), pipeline.Request{
		SourceRef: req.SourceRef,
		ClientID:  clientID(r),
	})

	// Drain the whole stream even if writes start failing; the run owns
	// its own lifecycle and the channel must be consumed until closed.
	disconnected := false
	for ev := range events {
		if disconnected {
			continue
		}
		if err := writeSSE(w, ev); err != nil {
			s.logger.Debug("Client disconnected mid-stream", "error", err)
			disconnected = true
			continue
		}
		flusher.Flush()
	}
}

// wsAnalyzeHandler streams the same event sequence over a WebSocket.
func (s *Server) wsAnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	sourceRef := r.URL.Query().Get("source_ref")
	if sourceRef == "" {
		http.Error(w, "source_ref required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	events := s.runner.Run(r.Context(), pipeline.Request{
		SourceRef: sourceRef,
		ClientID:  clientID(r),
	})

	disconnected := false
	for ev := range events {
		if disconnected {
			continue
		}
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("WebSocket client disconnected mid-stream", "error", err)
			disconnected = true
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// writeSSE writes one event in SSE framing.
func writeSSE(w http.ResponseWriter, ev pipeline.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

// clientID derives the caller identity for rate limiting from the request.
func clientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
