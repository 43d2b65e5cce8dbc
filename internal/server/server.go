// Package server exposes the plugin's state over a small local HTTP API:
// health, the current address snapshot, the rendered key image, and a
// manual refresh trigger. It binds to loopback by default and carries no
// authentication.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/deckwork/ipkey/internal/driver"
	"github.com/deckwork/ipkey/pkg/buildinfo"
	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Source is the driver surface the API reads from.
type Source interface {
	Snapshot() driver.Snapshot
	Kick()
}

var _ Source = (*driver.Driver)(nil)

// Server serves the status API.
type Server struct {
	source Source
	logger *log.Logger
	addr   string
	router http.Handler
}

// New builds a Server listening on addr, typically "127.0.0.1:9517".
func New(addr string, source Source, logger *log.Logger) *Server {
	s := &Server{source: source, logger: logger, addr: addr}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/key.svg", s.handleKeySVG)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

// ListenAndServe blocks until ctx is canceled, then drains in-flight
// requests before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Infof("status API listening on http://%s", s.addr)

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeInternal, err, "status API stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "status API shutdown")
	}
	<-errc
	return nil
}

// requestID tags every request so API lines can be matched across logs.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		s.logger.Debugf("%s %s (%s)", r.Method, r.URL.Path, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.source.Snapshot())
}

// handleKeySVG renders the key exactly as the hardware shows it. The lines
// query parameter mirrors the key setting; out-of-range values fall back
// the same way the key does.
func (s *Server) handleKeySVG(w http.ResponseWriter, r *http.Request) {
	mode := keyimage.ModeSingle
	if raw := r.URL.Query().Get("lines"); raw != "" {
		lines, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "lines must be a number")
			return
		}
		mode = keyimage.ParseDisplayMode(lines)
	}

	text := s.source.Snapshot().Address
	if text == "" {
		text = "Loading..."
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(keyimage.RenderAddress(text, mode).SVG()); err != nil {
		s.logger.Debugf("writing key image: %v", err)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.source.Kick()
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debugf("encoding response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
