package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "auctions.v1.AuctionService"

// AuctionServiceServer is the gRPC surface of the auction service. Messages
// are generic structs so clients need no generated stubs.
type AuctionServiceServer interface {
	GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PlaceBid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv AuctionServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuctionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AuctionServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AuctionServiceDesc describes auctions.v1.AuctionService for grpc.Server.
var AuctionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AuctionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetProduct",
			Handler: unaryHandler("GetProduct", func(srv AuctionServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetProduct(ctx, req)
			}),
		},
		{
			MethodName: "PlaceBid",
			Handler: unaryHandler("PlaceBid", func(srv AuctionServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.PlaceBid(ctx, req)
			}),
		},
		{
			MethodName: "ListProducts",
			Handler: unaryHandler("ListProducts", func(srv AuctionServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.ListProducts(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auctions/v1/auction_service",
}

// RegisterAuctionServiceServer registers srv on s.
func RegisterAuctionServiceServer(s grpc.ServiceRegistrar, srv AuctionServiceServer) {
	s.RegisterService(&AuctionServiceDesc, srv)
}

// AuctionServiceClient calls auctions.v1.AuctionService.
type AuctionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuctionServiceClient(cc grpc.ClientConnInterface) *AuctionServiceClient {
	return &AuctionServiceClient{cc: cc}
}

func (c *AuctionServiceClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuctionServiceClient) GetProduct(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetProduct", req, opts...)
}

func (c *AuctionServiceClient) PlaceBid(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "PlaceBid", req, opts...)
}

func (c *AuctionServiceClient) ListProducts(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListProducts", req, opts...)
}
