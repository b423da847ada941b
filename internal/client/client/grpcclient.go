package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *rpc.SyncServiceClient

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL lazily. Extra dial options are appended,
// which lets tests swap the dialer.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewSyncServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) SetToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) Register(ctx context.Context, name, email, password string) (string, error) {
	resp, err := s.client.Register(ctx, &rpc.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Token, nil
}

func (s *GRPCClient) Authenticate(ctx context.Context, email, password string) (string, error) {
	resp, err := s.client.Authenticate(ctx, &rpc.AuthenticateRequest{Email: email, Password: password})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Token, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Push(ctx context.Context, batch models.Batch) (*models.Ack, error) {
	entity := batch.Entity()
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode %s batch: %w", entity, err)
	}

	resp, err := s.client.Push(ctx, &rpc.PushRequest{Entity: string(entity), Data: data})
	if err != nil {
		return nil, s.mapError(err)
	}

	ack := &models.Ack{}
	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, &ack.Items); err != nil {
			return nil, fmt.Errorf("decode %s ack: %w", entity, err)
		}
	}
	return ack, nil
}

func (s *GRPCClient) Pull(ctx context.Context, entity models.EntityType, since *time.Time) (*PullResult, error) {
	resp, err := s.client.Pull(ctx, &rpc.PullRequest{Entity: string(entity), Since: since})
	if err != nil {
		return nil, s.mapError(err)
	}
	data := resp.Data
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("[]")
	}
	return &PullResult{Data: data, ServerTime: resp.ServerTime.UTC()}, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Unknown:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	}
}
