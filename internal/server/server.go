// Package server provides the HTTP preview server for the strand hair detector.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/strand/internal/app"
	"gocv.io/x/gocv"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Stop      *app.StopSwitch
	Logger    *slog.Logger
}

// Server represents the preview server. It observes the detection loop and
// serves the latest decision; it never touches the frame source.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *slog.Logger

	latest    *Snapshot
	decisions *DecisionsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "server"))

	s := &Server{
		config:    config,
		mux:       http.NewServeMux(),
		start:     time.Now(),
		logger:    logger,
		latest:    NewSnapshot(),
		decisions: NewDecisionsHandler(logger),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.Handle("/api/stream", NewStreamHandler(s.latest))
	s.mux.Handle("/api/decisions", s.decisions)

	if s.config.Stop != nil {
		s.mux.HandleFunc("/api/stop", s.handleStop)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Observe records the decision and an encoded copy of the annotated frame.
// It runs on the loop goroutine, so it must not block on clients.
func (s *Server) Observe(d app.Decision, annotated gocv.Mat) {
	status := statusFrom(d)

	var jpeg []byte
	if !annotated.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, annotated)
		if err != nil {
			s.logger.Warn("frame encode failed", slog.Any("error", err))
		} else {
			jpeg = append([]byte(nil), buf.GetBytes()...)
			buf.Close()
		}
	}

	s.latest.Update(status, jpeg)

	msg, err := json.Marshal(status)
	if err != nil {
		s.logger.Error("decision encode failed", slog.Any("error", err))
		return
	}
	s.decisions.Publish(msg)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, ok := s.latest.Status()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no decision yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleStop handles POST requests to /api/stop.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("stop requested over http", slog.String("remote", r.RemoteAddr))
	s.config.Stop.Request("preview server stop request")

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.latest.Close()
		s.decisions.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("preview server shutdown", slog.Any("error", err))
		}
	}()

	s.logger.Info("preview server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
