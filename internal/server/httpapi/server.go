// Package httpapi serves the sync API over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/logging"
	"github.com/dmitrijs2005/herdsync/internal/server/metrics"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
	"github.com/dmitrijs2005/herdsync/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxRequestBody bounds push batches and auth bodies.
const maxRequestBody = 8 << 20

const shutdownTimeout = 10 * time.Second

type UserService interface {
	Register(ctx context.Context, name, email, password string) (string, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
}

type SyncService interface {
	Push(ctx context.Context, userID string, entity models.Entity, data json.RawMessage) (*services.PushResult, error)
	Pull(ctx context.Context, userID string, entity models.Entity, since *time.Time) (*services.PullResult, error)
}

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Users    UserService
	Sync     SyncService
	Verifier TokenVerifier
	Health   Pinger
	Metrics  *metrics.Metrics
	Logger   logging.Logger
}

type Server struct {
	addr       string
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(d),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: d.Logger,
	}
}

// NewRouter builds the route table. It is exported so tests can mount it on
// an httptest server.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	h := &handlers{deps: d}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))
	r.Use(observe(d.Metrics))

	r.Get("/ping", h.ping)
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(limitBody(maxRequestBody))
		r.Post("/register", h.register)
		r.Post("/authenticate", h.authenticate)
	})

	r.Route("/sync/{entity}", func(r chi.Router) {
		r.Use(requireToken(d.Verifier, d.Metrics))
		r.With(limitBody(maxRequestBody)).Post("/push", h.push)
		r.Get("/pull", h.pull)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}
