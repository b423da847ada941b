package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func userIDFrom(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userIDKey).(string)
	if !ok || id == "" {
		return "", status.Error(codes.Unauthenticated, "missing user")
	}
	return id, nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if rpc.PublicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		s.metrics.RecordAuthFailure("missing_token")
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := s.verifier.Verify(accessToken)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, common.ErrTokenExpired) {
			reason = "expired_token"
		}
		s.metrics.RecordAuthFailure(reason)
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return handler(context.WithValue(ctx, userIDKey, userID), req)
}

func (s *GRPCServer) observeInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	end := s.metrics.Begin()
	defer end()

	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	s.metrics.ObserveRequest("grpc", info.FullMethod, code.String(), time.Since(start))
	s.logger.Debug(ctx, "request completed", "method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
	return resp, err
}
