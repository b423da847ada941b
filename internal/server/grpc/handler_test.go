package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	clientmodels "github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/rpc"
	"github.com/dmitrijs2005/herdsync/internal/server/auth"
	"github.com/dmitrijs2005/herdsync/internal/server/metrics"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/herdsync/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

var secret = []byte("grpc-test-secret")

func startServer(t *testing.T) *bufconn.Listener {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	m := metrics.New()
	s := NewGRPCServer("bufnet", nopLogger{},
		services.NewUserService(rm, secret, time.Hour, m),
		services.NewSyncService(rm, m),
		auth.NewVerifier(secret, 16, time.Minute),
		rm, m)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lis
}

func dialer(lis *bufconn.Listener) grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func rawClient(t *testing.T, lis *bufconn.Listener) *rpc.SyncServiceClient {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()), dialer(lis))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return rpc.NewSyncServiceClient(conn)
}

func TestInterceptor_RejectsMissingAndBadTokens(t *testing.T) {
	lis := startServer(t)
	c := rawClient(t, lis)
	ctx := context.Background()

	_, err := c.Ping(ctx, &rpc.PingRequest{})
	require.NoError(t, err)

	_, err = c.Pull(ctx, &rpc.PullRequest{Entity: "herds"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	badCtx := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, "garbage")
	_, err = c.Pull(badCtx, &rpc.PullRequest{Entity: "herds"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHandlers_ErrorCodes(t *testing.T) {
	lis := startServer(t)
	c := rawClient(t, lis)
	ctx := context.Background()

	resp, err := c.Register(ctx, &rpc.RegisterRequest{Name: "a", Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = c.Register(ctx, &rpc.RegisterRequest{Name: "a", Email: "a@example.com", Password: "secret123"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = c.Authenticate(ctx, &rpc.AuthenticateRequest{Email: "a@example.com", Password: "wrong-pass"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authed := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, resp.Token)

	_, err = c.Pull(authed, &rpc.PullRequest{Entity: "cats"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Push(authed, &rpc.PushRequest{Entity: "herds", Data: json.RawMessage(`[{"name":""}]`)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Push(authed, &rpc.PushRequest{Entity: "herds", Data: json.RawMessage(`[{"id":7,"name":"x"}]`)})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

// The client gRPC transport and this server must agree on the wire format.
func TestGRPCClientAgainstServer(t *testing.T) {
	lis := startServer(t)
	ctx := context.Background()

	c, err := client.NewGRPCClient("passthrough:///bufnet", dialer(lis))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(ctx))

	token, err := c.Register(ctx, "Ann", "ann@example.com", "secret123")
	require.NoError(t, err)

	_, err = c.Pull(ctx, clientmodels.EntityHerds, nil)
	require.True(t, errors.Is(err, client.ErrUnauthorized))

	c.SetToken(token)

	ack, err := c.Push(ctx, clientmodels.HerdBatch{
		{ClientRef: "ref-1", Name: "North", Active: true},
	})
	require.NoError(t, err)
	require.Len(t, ack.Items, 1)
	assert.Equal(t, "ref-1", ack.Items[0].ClientRef)

	res, err := c.Pull(ctx, clientmodels.EntityHerds, nil)
	require.NoError(t, err)
	var herds []clientmodels.HerdPull
	require.NoError(t, json.Unmarshal(res.Data, &herds))
	require.Len(t, herds, 1)
	assert.Equal(t, ack.Items[0].ID, herds[0].ID)
	assert.Equal(t, "North", herds[0].Name)
	assert.False(t, res.ServerTime.IsZero())
}
