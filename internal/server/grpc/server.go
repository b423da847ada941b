// Package grpc serves the sync API over gRPC using the JSON codec from
// internal/rpc.
package grpc

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/logging"
	"github.com/dmitrijs2005/herdsync/internal/rpc"
	"github.com/dmitrijs2005/herdsync/internal/server/metrics"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
	"github.com/dmitrijs2005/herdsync/internal/server/services"
	"google.golang.org/grpc"
)

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

type GRPCServer struct {
	address  string
	users    UserService
	sync     SyncService
	verifier TokenVerifier
	health   Pinger
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, us UserService, ss SyncService, v TokenVerifier, h Pinger, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		users:    us,
		sync:     ss,
		verifier: v,
		health:   h,
		metrics:  m,
	}
}

// NewServer builds the grpc.Server with interceptors and the service
// registered, without listening.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.accessTokenInterceptor))
	rpc.RegisterSyncServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
