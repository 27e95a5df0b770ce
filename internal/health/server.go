// Package health serves the keep-alive endpoint hosting platforms poll.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Body is returned for every request.
const Body = "Mika is shining brightly! ✨"

const shutdownTimeout = 5 * time.Second

// Server answers 200 on any path.
type Server struct {
	srv *http.Server
	log logrus.FieldLogger
}

// NewServer creates a health server listening on port.
func NewServer(port string, logger logrus.FieldLogger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort("", port),
			Handler:           Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.WithField("component", "health"),
	}
}

// Router returns the handler behind the server.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.HandleFunc("/", alive)
	r.HandleFunc("/*", alive)
	return r
}

func alive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(Body))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("Health endpoint listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health server shutdown: %w", err)
	}
	s.log.Info("Health endpoint stopped")
	return nil
}
