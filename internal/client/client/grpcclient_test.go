package client

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeSyncServer struct {
	lastToken string
	lastPush  *rpc.PushRequest
	lastPull  *rpc.PullRequest
	pushResp  *rpc.PushResponse
	pullResp  *rpc.PullResponse
	err       error
}

func (f *fakeSyncServer) token(ctx context.Context) {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		f.lastToken = v[0]
	}
}

func (f *fakeSyncServer) Ping(ctx context.Context, _ *rpc.PingRequest) (*rpc.PingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (f *fakeSyncServer) Register(ctx context.Context, in *rpc.RegisterRequest) (*rpc.TokenResponse, error) {
	return &rpc.TokenResponse{Token: "reg-" + in.Email}, f.err
}

func (f *fakeSyncServer) Authenticate(ctx context.Context, in *rpc.AuthenticateRequest) (*rpc.TokenResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.TokenResponse{Token: "auth-" + in.Email}, nil
}

func (f *fakeSyncServer) Push(ctx context.Context, in *rpc.PushRequest) (*rpc.PushResponse, error) {
	f.token(ctx)
	f.lastPush = in
	if f.err != nil {
		return nil, f.err
	}
	return f.pushResp, nil
}

func (f *fakeSyncServer) Pull(ctx context.Context, in *rpc.PullRequest) (*rpc.PullResponse, error) {
	f.token(ctx)
	f.lastPull = in
	if f.err != nil {
		return nil, f.err
	}
	return f.pullResp, nil
}

func startBufconn(t *testing.T, srv rpc.SyncServiceServer) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	rpc.RegisterSyncServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCClient_PushAndPull(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	fake := &fakeSyncServer{
		pushResp: &rpc.PushResponse{Data: json.RawMessage(`[{"id":5,"clientRef":"r1"}]`), ServerTime: now},
		pullResp: &rpc.PullResponse{Data: json.RawMessage(`[{"id":5,"name":"North"}]`), ServerTime: now},
	}
	c := startBufconn(t, fake)
	c.SetToken("secret")
	ctx := context.Background()

	ack, err := c.Push(ctx, models.HerdBatch{{ClientRef: "r1", Name: "North", Active: true}})
	require.NoError(t, err)
	assert.Equal(t, "secret", fake.lastToken)
	assert.Equal(t, "herds", fake.lastPush.Entity)
	assert.JSONEq(t, `[{"id":null,"clientRef":"r1","name":"North","active":true}]`, string(fake.lastPush.Data))
	assert.Equal(t, []models.AckItem{{ID: 5, ClientRef: "r1"}}, ack.Items)

	since := now.Add(-time.Hour)
	res, err := c.Pull(ctx, models.EntityHerds, &since)
	require.NoError(t, err)
	require.NotNil(t, fake.lastPull.Since)
	assert.True(t, since.Equal(*fake.lastPull.Since))
	assert.JSONEq(t, `[{"id":5,"name":"North"}]`, string(res.Data))
}

func TestGRPCClient_AuthAndPing(t *testing.T) {
	c := startBufconn(t, &fakeSyncServer{})
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	tok, err := c.Authenticate(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "auth-a@b.c", tok)
}

func TestGRPCClient_MapError(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.Unauthenticated, ErrUnauthorized},
		{codes.PermissionDenied, ErrUnauthorized},
		{codes.Unavailable, ErrUnavailable},
		{codes.DeadlineExceeded, ErrUnavailable},
		{codes.InvalidArgument, ErrRejected},
		{codes.NotFound, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			c := startBufconn(t, &fakeSyncServer{err: status.Error(tt.code, "boom")})
			_, err := c.Pull(context.Background(), models.EntityBovines, nil)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
