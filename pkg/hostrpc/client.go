package hostrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/prover"
)

// Client calls a remote Prover service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the service at target. Connections are plaintext
// unless opts supply transport credentials.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(Codec{}),
			grpc.MaxCallRecvMsgSize(DefaultMaxMessageSize),
			grpc.MaxCallSendMsgSize(DefaultMaxMessageSize),
		),
	}, opts...)

	//nolint:staticcheck // Dial keeps compatibility with older gRPC versions
	conn, err := grpc.Dial(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gRPC: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Setup derives the keys of a program served remotely.
func (c *Client) Setup(ctx context.Context, program string) (*prover.ProvingKey, *prover.VerifyingKey, error) {
	out := new(SetupResponse)
	if err := c.conn.Invoke(ctx, methodSetup, &SetupRequest{Program: program}, out); err != nil {
		return nil, nil, err
	}
	return out.ProvingKey, out.VerifyingKey, nil
}

// Execute runs a program remotely without proving.
func (c *Client) Execute(ctx context.Context, program string, stdin *host.Stdin) (*host.Report, error) {
	out := new(ExecuteResponse)
	if err := c.conn.Invoke(ctx, methodExecute, &ExecuteRequest{Program: program, Stdin: stdin}, out); err != nil {
		return nil, err
	}
	return out.Report, nil
}

// Prove proves a program remotely.
func (c *Client) Prove(ctx context.Context, pk *prover.ProvingKey, stdin *host.Stdin) (*prover.Receipt, error) {
	out := new(ProveResponse)
	if err := c.conn.Invoke(ctx, methodProve, &ProveRequest{ProvingKey: pk, Stdin: stdin}, out); err != nil {
		return nil, err
	}
	return out.Receipt, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
