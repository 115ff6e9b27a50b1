// Package hostrpc exposes a prover.Client over gRPC as the
// zilkworm.v1.Prover service.
package hostrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/prover"
)

const serviceName = "zilkworm.v1.Prover"

// Method names.
const (
	methodSetup   = "/" + serviceName + "/Setup"
	methodExecute = "/" + serviceName + "/Execute"
	methodProve   = "/" + serviceName + "/Prove"
)

// DefaultMaxMessageSize bounds request and response sizes.
const DefaultMaxMessageSize = 64 << 20

// SetupRequest names the program to derive keys for.
type SetupRequest struct {
	Program string `cbor:"1,keyasint"`
}

// SetupResponse carries the derived key pair.
type SetupResponse struct {
	ProvingKey   *prover.ProvingKey   `cbor:"1,keyasint"`
	VerifyingKey *prover.VerifyingKey `cbor:"2,keyasint"`
}

// ExecuteRequest runs Program on Stdin without proving.
type ExecuteRequest struct {
	Program string      `cbor:"1,keyasint"`
	Stdin   *host.Stdin `cbor:"2,keyasint"`
}

// ExecuteResponse carries the execution report.
type ExecuteResponse struct {
	Report *host.Report `cbor:"1,keyasint"`
}

// ProveRequest proves the program ProvingKey belongs to on Stdin.
type ProveRequest struct {
	ProvingKey *prover.ProvingKey `cbor:"1,keyasint"`
	Stdin      *host.Stdin        `cbor:"2,keyasint"`
}

// ProveResponse carries the sealed receipt.
type ProveResponse struct {
	Receipt *prover.Receipt `cbor:"1,keyasint"`
}

// ProverServer is the server API of the Prover service.
type ProverServer interface {
	Setup(context.Context, *SetupRequest) (*SetupResponse, error)
	Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
	Prove(context.Context, *ProveRequest) (*ProveResponse, error)
}

func unaryHandler[Req any, Resp any](method string, call func(ProverServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProverServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProverServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ProverServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Setup", Handler: unaryHandler(methodSetup, ProverServer.Setup)},
		{MethodName: "Execute", Handler: unaryHandler(methodExecute, ProverServer.Execute)},
		{MethodName: "Prove", Handler: unaryHandler(methodProve, ProverServer.Prove)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zilkworm/v1/prover.proto",
}
