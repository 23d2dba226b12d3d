package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// engagementServer is the handler type of serviceDesc.
type engagementServer interface {
	ScoreMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProposeMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcceptMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateContract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PauseAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResumeAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpc func(engagementServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unary builds the MethodDesc for one Struct-in, Struct-out method.
func unary(name string, call rpc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(engagementServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(engagementServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*engagementServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ScoreMatch", engagementServer.ScoreMatch),
		unary("ProposeMatch", engagementServer.ProposeMatch),
		unary("AcceptMatch", engagementServer.AcceptMatch),
		unary("RejectMatch", engagementServer.RejectMatch),
		unary("CreateContract", engagementServer.CreateContract),
		unary("PauseAssignment", engagementServer.PauseAssignment),
		unary("ResumeAssignment", engagementServer.ResumeAssignment),
		unary("CompleteAssignment", engagementServer.CompleteAssignment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bizmatch/engagement/v1/engagement.proto",
}
