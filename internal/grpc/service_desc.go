package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pulse.v1.PulseResults"

const (
	methodGetWeeklyTrends  = "/" + ServiceName + "/GetWeeklyTrends"
	methodGetTextResponses = "/" + ServiceName + "/GetTextResponses"
	methodGetResults       = "/" + ServiceName + "/GetResults"
)

// PulseResultsServer is the server API for the results service. Payloads are
// well-known protobuf types so the default proto codec carries them.
type PulseResultsServer interface {
	GetWeeklyTrends(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetTextResponses(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	GetResults(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterPulseResultsServer registers srv on s.
func RegisterPulseResultsServer(s grpc.ServiceRegistrar, srv PulseResultsServer) {
	s.RegisterService(&pulseResultsServiceDesc, srv)
}

var pulseResultsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PulseResultsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetWeeklyTrends", Handler: getWeeklyTrendsHandler},
		{MethodName: "GetTextResponses", Handler: getTextResponsesHandler},
		{MethodName: "GetResults", Handler: getResultsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pulse/v1/results.proto",
}

func getWeeklyTrendsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PulseResultsServer).GetWeeklyTrends(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetWeeklyTrends}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PulseResultsServer).GetWeeklyTrends(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getTextResponsesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PulseResultsServer).GetTextResponses(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetTextResponses}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PulseResultsServer).GetTextResponses(ctx, req.(*wrapperspb.Int32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func getResultsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PulseResultsServer).GetResults(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetResults}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PulseResultsServer).GetResults(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// PulseResultsClient is the client API for the results service.
type PulseResultsClient interface {
	GetWeeklyTrends(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetTextResponses(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetResults(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type pulseResultsClient struct {
	cc grpc.ClientConnInterface
}

func NewPulseResultsClient(cc grpc.ClientConnInterface) PulseResultsClient {
	return &pulseResultsClient{cc: cc}
}

func (c *pulseResultsClient) GetWeeklyTrends(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetWeeklyTrends, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pulseResultsClient) GetTextResponses(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetTextResponses, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pulseResultsClient) GetResults(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetResults, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
