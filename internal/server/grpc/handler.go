package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/rpc"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
	"github.com/dmitrijs2005/herdsync/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ rpc.SyncServiceServer = (*GRPCServer)(nil)

// toStatus maps service errors onto gRPC codes the way the HTTP API maps
// them onto status codes.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrMalformedRequest), errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrUnknownEntity), errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "storage ping failed", "error", err)
			return nil, status.Error(codes.Unavailable, "storage unavailable")
		}
	}
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.TokenResponse, error) {
	s.logger.Info(ctx, "Registration request")

	token, err := s.users.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.TokenResponse{Token: token}, nil
}

func (s *GRPCServer) Authenticate(ctx context.Context, req *rpc.AuthenticateRequest) (*rpc.TokenResponse, error) {
	token, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.TokenResponse{Token: token}, nil
}

func (s *GRPCServer) Push(ctx context.Context, req *rpc.PushRequest) (*rpc.PushResponse, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	entity, err := models.ParseEntity(req.Entity)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res, err := s.sync.Push(ctx, userID, entity, req.Data)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	items := res.Items
	if items == nil {
		items = []models.AckItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.PushResponse{Data: data, ServerTime: res.ServerTime}, nil
}

func (s *GRPCServer) Pull(ctx context.Context, req *rpc.PullRequest) (*rpc.PullResponse, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	entity, err := models.ParseEntity(req.Entity)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res, err := s.sync.Pull(ctx, userID, entity, req.Since)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	data, err := json.Marshal(res.Records)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.PullResponse{Data: data, ServerTime: res.ServerTime}, nil
}
