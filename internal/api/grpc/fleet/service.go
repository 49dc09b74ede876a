package fleet

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fleet.v1.FleetService"

// Full method names used by clients.
const (
	DispatchMethod        = "/" + ServiceName + "/Dispatch"
	MarkLogisticsMethod   = "/" + ServiceName + "/MarkLogistics"
	MarkDestinationMethod = "/" + ServiceName + "/MarkDestination"
	ResetMethod           = "/" + ServiceName + "/Reset"
	SetAvailabilityMethod = "/" + ServiceName + "/SetAvailability"
	UpdateFleetMethod     = "/" + ServiceName + "/UpdateFleet"
	SnapshotMethod        = "/" + ServiceName + "/Snapshot"
)

// FleetServiceServer is the server API of fleet.v1.FleetService.
type FleetServiceServer interface {
	Dispatch(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	MarkLogistics(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	MarkDestination(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	Reset(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	SetAvailability(ctx context.Context, req *structpb.ListValue) (*emptypb.Empty, error)
	UpdateFleet(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	Snapshot(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterFleetServiceServer registers srv with the gRPC server s.
func RegisterFleetServiceServer(s grpc.ServiceRegistrar, srv FleetServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// serviceDesc describes fleet.v1.FleetService to grpc-go.
//
//nolint:gochecknoglobals // grpc-go takes service descriptors by pointer.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FleetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Dispatch", Handler: unaryHandler(DispatchMethod, FleetServiceServer.Dispatch)},
		{MethodName: "MarkLogistics", Handler: unaryHandler(MarkLogisticsMethod, FleetServiceServer.MarkLogistics)},
		{
			MethodName: "MarkDestination",
			Handler:    unaryHandler(MarkDestinationMethod, FleetServiceServer.MarkDestination),
		},
		{MethodName: "Reset", Handler: unaryHandler(ResetMethod, FleetServiceServer.Reset)},
		{
			MethodName: "SetAvailability",
			Handler:    unaryHandler(SetAvailabilityMethod, FleetServiceServer.SetAvailability),
		},
		{MethodName: "UpdateFleet", Handler: unaryHandler(UpdateFleetMethod, FleetServiceServer.UpdateFleet)},
		{MethodName: "Snapshot", Handler: unaryHandler(SnapshotMethod, FleetServiceServer.Snapshot)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleet/v1/fleet.proto",
}

// unaryHandler adapts a FleetServiceServer method to grpc.MethodHandler,
// running it through the server's interceptor chain when there is one.
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(FleetServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(FleetServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}
