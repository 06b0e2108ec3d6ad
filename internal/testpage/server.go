// Package testpage serves a local detection page. The page runs the checks
// common bot-detection scripts run and publishes its verdict through
// document.title and a global results object.
package testpage

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/internal/browser/jsbind"
)

//go:embed detect.html
var detectHTML []byte

// Verdict titles the page sets.
const (
	TitleClean    = "clean"
	TitleDetected = "detected: "
)

// ResultsGlobal is the global the page stores its per-check results in.
const ResultsGlobal = "__ghostpatch_detect"

// HTML returns the detection page.
func HTML() []byte {
	return bytes.Clone(detectHTML)
}

// Page returns the detection page parsed for sandbox execution.
func Page() (*jsbind.Page, error) {
	return jsbind.ParsePage(bytes.NewReader(detectHTML))
}

// Server serves the detection page on a loopback listener.
type Server struct {
	logger   *zap.Logger
	srv      *http.Server
	listener net.Listener

	mu   sync.Mutex
	hits int
}

// New creates a server. Call Start to begin serving.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger.Named("testpage")}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()

	s.logger.Debug("Serving detection page", zap.String("request_id", middleware.GetReqID(r.Context())))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(detectHTML)
}

// Hits reports how many times the page was served.
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// Start listens on an ephemeral loopback port and serves in the background.
// It returns the page URL.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen for test page: %w", err)
	}
	s.listener = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Test page server error", zap.Error(err))
		}
	}()
	url := s.URL()
	s.logger.Info("Test page listening", zap.String("url", url))
	return url, nil
}

// URL returns the page URL, or "" before Start.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down test page: %w", err)
	}
	return nil
}
