package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "herdsync.v1.SyncService"

const (
	PingMethod         = "/" + ServiceName + "/Ping"
	RegisterMethod     = "/" + ServiceName + "/Register"
	AuthenticateMethod = "/" + ServiceName + "/Authenticate"
	PushMethod         = "/" + ServiceName + "/Push"
	PullMethod         = "/" + ServiceName + "/Pull"
)

// PublicMethods do not require an access token.
var PublicMethods = map[string]bool{
	PingMethod:         true,
	RegisterMethod:     true,
	AuthenticateMethod: true,
}

// SyncServiceServer is implemented by the server.
type SyncServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*TokenResponse, error)
	Authenticate(context.Context, *AuthenticateRequest) (*TokenResponse, error)
	Push(context.Context, *PushRequest) (*PushResponse, error)
	Pull(context.Context, *PullRequest) (*PullResponse, error)
}

func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req any, Resp any](method string, call func(SyncServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SyncServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SyncServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the descriptor protoc would have generated for the service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(PingMethod, SyncServiceServer.Ping)},
		{MethodName: "Register", Handler: unary(RegisterMethod, SyncServiceServer.Register)},
		{MethodName: "Authenticate", Handler: unary(AuthenticateMethod, SyncServiceServer.Authenticate)},
		{MethodName: "Push", Handler: unary(PushMethod, SyncServiceServer.Push)},
		{MethodName: "Pull", Handler: unary(PullMethod, SyncServiceServer.Pull)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "herdsync/v1/sync.proto",
}

// SyncServiceClient is the client stub.
type SyncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncServiceClient(cc grpc.ClientConnInterface) *SyncServiceClient {
	return &SyncServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SyncServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, PingMethod, in, opts)
}

func (c *SyncServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, RegisterMethod, in, opts)
}

func (c *SyncServiceClient) Authenticate(ctx context.Context, in *AuthenticateRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, AuthenticateMethod, in, opts)
}

func (c *SyncServiceClient) Push(ctx context.Context, in *PushRequest, opts ...grpc.CallOption) (*PushResponse, error) {
	return invoke[PushResponse](ctx, c.cc, PushMethod, in, opts)
}

func (c *SyncServiceClient) Pull(ctx context.Context, in *PullRequest, opts ...grpc.CallOption) (*PullResponse, error) {
	return invoke[PullResponse](ctx, c.cc, PullMethod, in, opts)
}
