package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// EvaluationServiceDesc describes the service to grpc-go. There is no
// generated stub; messages are plain structs carried by the CBOR codec.
var EvaluationServiceDesc = grpc.ServiceDesc{
	ServiceName: EvaluationServiceName,
	HandlerType: (*EvaluationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Evaluate",
			Handler:    unaryHandler(EvaluateProcedure, EvaluationServer.EvaluateSource),
		},
		{
			MethodName: "CheckSyntax",
			Handler:    unaryHandler(CheckSyntaxProcedure, EvaluationServer.CheckSource),
		},
		{
			MethodName: "Disassemble",
			Handler:    unaryHandler(DisassembleProcedure, EvaluationServer.DisassembleSource),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sgm/v1/evaluation",
}

// unaryHandler adapts one EvaluationServer method to grpc.MethodHandler.
func unaryHandler[Req, Res any](
	fullMethod string,
	call func(EvaluationServer, context.Context, *Req) (*Res, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	invoke := func(srv any, ctx context.Context, req *Req) (any, error) {
		resp, err := call(srv.(EvaluationServer), ctx, req)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return resp, nil
	}
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return invoke(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return invoke(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// NewGRPCServer returns a grpc.Server with svc registered and the CBOR
// codec forced for every call.
func NewGRPCServer(svc EvaluationServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(cborCodec{})}, opts...)
	gs := grpc.NewServer(opts...)
	gs.RegisterService(&EvaluationServiceDesc, svc)
	return gs
}

// ---------------------------------------------------------------------------
// gRPC client
// ---------------------------------------------------------------------------

// GRPCClient calls the service over gRPC.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC creates a client for target. The connection is plaintext; extra
// options are applied after the defaults.
func DialGRPC(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(cborCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	out := new(EvaluateResponse)
	if err := c.conn.Invoke(ctx, EvaluateProcedure, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) CheckSyntax(ctx context.Context, req *CheckSyntaxRequest) (*CheckSyntaxResponse, error) {
	out := new(CheckSyntaxResponse)
	if err := c.conn.Invoke(ctx, CheckSyntaxProcedure, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) Disassemble(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	out := new(DisassembleResponse)
	if err := c.conn.Invoke(ctx, DisassembleProcedure, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
