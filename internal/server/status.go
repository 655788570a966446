package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/cloudmatch/internal/shared"
)

// Health is the body of /health.
type Health struct {
	Status        string    `json:"status"`
	Authenticated bool      `json:"authenticated"`
	User          string    `json:"user,omitempty"`
	Page          int       `json:"page"`
	TotalPages    int       `json:"total_pages"`
	Songs         int       `json:"songs"`
	LogEntries    int       `json:"log_entries"`
	CachedImages  int       `json:"cached_images"`
	Time          time.Time `json:"time"`
}

// HealthFunc reports the current process state.
type HealthFunc func() Health

// StatusHandler serves /health and /metrics.
type StatusHandler struct {
	health  HealthFunc
	metrics http.Handler
	now     func() time.Time
}

// NewStatusHandler builds a [StatusHandler]. A nil metrics handler answers 404.
func NewStatusHandler(health HealthFunc, metrics http.Handler) *StatusHandler {
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	if health == nil {
		health = func() Health { return Health{} }
	}
	return &StatusHandler{health: health, metrics: metrics, now: time.Now}
}

func (h *StatusHandler) Routes() []string {
	return []string{"/health", "/metrics"}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/metrics":
		h.metrics.ServeHTTP(w, r)
	case "/health":
		body := h.health()
		if body.Status == "" {
			body.Status = "ok"
		}
		body.Time = h.now().UTC()

		data, err := shared.MarshalJSON(body, false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

// Server serves a router on a bound listener.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *log.Logger
	errs   chan error
}

// Start binds addr and serves handler in the background.
func Start(addr string, handler http.Handler, logger *log.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
		errs:   make(chan error, 1),
	}

	go func() {
		logger.Infof("serving diagnostics at http://%s", ln.Addr())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("diagnostics server stopped", "error", err)
			s.errs <- err
		}
		close(s.errs)
	}()
	return s, nil
}

// Addr is the bound address, useful when started on port 0.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Errors yields a serve failure, then closes once the server stops.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// Shutdown stops accepting connections and waits up to five seconds for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}
