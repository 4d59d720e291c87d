package currency

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "currency.v1.CurrencyService"

// Full method names for currency.v1.CurrencyService.
const (
	InsertCurrencyFullMethod                = "/" + ServiceName + "/InsertCurrency"
	DeleteCurrencyFullMethod                = "/" + ServiceName + "/DeleteCurrency"
	ListCurrenciesFullMethod                = "/" + ServiceName + "/ListCurrencies"
	GetCurrencyFullMethod                   = "/" + ServiceName + "/GetCurrency"
	GetLastUnsyncedCurrencyFullMethod       = "/" + ServiceName + "/GetLastUnsyncedCurrency"
	AcknowledgeUnsyncedCurrenciesFullMethod = "/" + ServiceName + "/AcknowledgeUnsyncedCurrencies"
	GetMostRecentSyncedCurrencyFullMethod   = "/" + ServiceName + "/GetMostRecentSyncedCurrency"
	UpdateCurrencyFullMethod                = "/" + ServiceName + "/UpdateCurrency"
)

// CurrencyServiceServer is the server API for currency.v1.CurrencyService.
//
// Messages are protobuf well-known types: currencies travel as
// google.protobuf.Struct, ids and counts as google.protobuf.Int64Value.
type CurrencyServiceServer interface {
	InsertCurrency(context.Context, *structpb.Struct) (*wrapperspb.Int64Value, error)
	DeleteCurrency(context.Context, *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error)
	ListCurrencies(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	GetCurrency(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetLastUnsyncedCurrency(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AcknowledgeUnsyncedCurrencies(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	GetMostRecentSyncedCurrency(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	UpdateCurrency(context.Context, *structpb.Struct) (*wrapperspb.Int64Value, error)
}

// RegisterCurrencyServiceServer registers srv on s.
func RegisterCurrencyServiceServer(s grpc.ServiceRegistrar, srv CurrencyServiceServer) {
	s.RegisterService(&CurrencyService_ServiceDesc, srv)
}

// CurrencyService_ServiceDesc is the grpc.ServiceDesc for currency.v1.CurrencyService.
var CurrencyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CurrencyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InsertCurrency", Handler: unaryHandler(InsertCurrencyFullMethod, CurrencyServiceServer.InsertCurrency)},
		{MethodName: "DeleteCurrency", Handler: unaryHandler(DeleteCurrencyFullMethod, CurrencyServiceServer.DeleteCurrency)},
		{MethodName: "GetCurrency", Handler: unaryHandler(GetCurrencyFullMethod, CurrencyServiceServer.GetCurrency)},
		{MethodName: "GetLastUnsyncedCurrency", Handler: unaryHandler(GetLastUnsyncedCurrencyFullMethod, CurrencyServiceServer.GetLastUnsyncedCurrency)},
		{MethodName: "AcknowledgeUnsyncedCurrencies", Handler: unaryHandler(AcknowledgeUnsyncedCurrenciesFullMethod, CurrencyServiceServer.AcknowledgeUnsyncedCurrencies)},
		{MethodName: "GetMostRecentSyncedCurrency", Handler: unaryHandler(GetMostRecentSyncedCurrencyFullMethod, CurrencyServiceServer.GetMostRecentSyncedCurrency)},
		{MethodName: "UpdateCurrency", Handler: unaryHandler(UpdateCurrencyFullMethod, CurrencyServiceServer.UpdateCurrency)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ListCurrencies",
			Handler:       listCurrenciesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "currency/v1/currency.proto",
}

func unaryHandler[Req, Resp any](fullMethod string, call func(CurrencyServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CurrencyServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CurrencyServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func listCurrenciesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CurrencyServiceServer).ListCurrencies(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
