// Package proto holds the gRPC contract of the tool surface.
//
// Every method takes and returns a google.protobuf.Struct, so tool
// arguments and results stay free-form JSON objects. The service
// descriptor, server interface and client are written out here the way
// protoc-gen-go-grpc would emit them for:
//
//	service ToolService {
//	  rpc ConnectCompany(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc ListCompanies(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc QueryCompany(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc QueryAll(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc ExportAll(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ToolServiceName = "qborelay.v1.ToolService"

const (
	ToolService_ConnectCompany_FullMethodName = "/" + ToolServiceName + "/ConnectCompany"
	ToolService_ListCompanies_FullMethodName  = "/" + ToolServiceName + "/ListCompanies"
	ToolService_QueryCompany_FullMethodName   = "/" + ToolServiceName + "/QueryCompany"
	ToolService_QueryAll_FullMethodName       = "/" + ToolServiceName + "/QueryAll"
	ToolService_ExportAll_FullMethodName      = "/" + ToolServiceName + "/ExportAll"
)

// ToolServiceServer is the server API for ToolService.
type ToolServiceServer interface {
	ConnectCompany(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCompanies(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryCompany(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedToolServiceServer can be embedded to have forward compatible implementations.
type UnimplementedToolServiceServer struct{}

func (UnimplementedToolServiceServer) ConnectCompany(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ConnectCompany not implemented")
}
func (UnimplementedToolServiceServer) ListCompanies(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListCompanies not implemented")
}
func (UnimplementedToolServiceServer) QueryCompany(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method QueryCompany not implemented")
}
func (UnimplementedToolServiceServer) QueryAll(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method QueryAll not implemented")
}
func (UnimplementedToolServiceServer) ExportAll(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ExportAll not implemented")
}

func RegisterToolServiceServer(s grpc.ServiceRegistrar, srv ToolServiceServer) {
	s.RegisterService(&ToolService_ServiceDesc, srv)
}

type toolCall func(srv ToolServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call toolCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ToolServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ToolServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ToolService_ServiceDesc is the grpc.ServiceDesc for ToolService.
var ToolService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ToolServiceName,
	HandlerType: (*ToolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ConnectCompany",
			Handler:    unaryHandler(ToolService_ConnectCompany_FullMethodName, ToolServiceServer.ConnectCompany),
		},
		{
			MethodName: "ListCompanies",
			Handler:    unaryHandler(ToolService_ListCompanies_FullMethodName, ToolServiceServer.ListCompanies),
		},
		{
			MethodName: "QueryCompany",
			Handler:    unaryHandler(ToolService_QueryCompany_FullMethodName, ToolServiceServer.QueryCompany),
		},
		{
			MethodName: "QueryAll",
			Handler:    unaryHandler(ToolService_QueryAll_FullMethodName, ToolServiceServer.QueryAll),
		},
		{
			MethodName: "ExportAll",
			Handler:    unaryHandler(ToolService_ExportAll_FullMethodName, ToolServiceServer.ExportAll),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "qborelay/v1/tools.proto",
}

// ToolServiceClient is the client API for ToolService.
type ToolServiceClient interface {
	ConnectCompany(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListCompanies(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	QueryCompany(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	QueryAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ExportAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type toolServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewToolServiceClient(cc grpc.ClientConnInterface) ToolServiceClient {
	return &toolServiceClient{cc}
}

func (c *toolServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *toolServiceClient) ConnectCompany(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ToolService_ConnectCompany_FullMethodName, in, opts...)
}

func (c *toolServiceClient) ListCompanies(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ToolService_ListCompanies_FullMethodName, in, opts...)
}

func (c *toolServiceClient) QueryCompany(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ToolService_QueryCompany_FullMethodName, in, opts...)
}

func (c *toolServiceClient) QueryAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ToolService_QueryAll_FullMethodName, in, opts...)
}

func (c *toolServiceClient) ExportAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ToolService_ExportAll_FullMethodName, in, opts...)
}
