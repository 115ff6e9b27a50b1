package hostrpc

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/fortiblox/zilkworm/internal/logging"
	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/prover"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	MaxMessageSize int

	// KeepaliveTime is the interval between server pings.
	KeepaliveTime time.Duration

	Logger *zap.Logger
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		KeepaliveTime:  30 * time.Second,
	}
}

// Server serves a prover.Client.
type Server struct {
	client *prover.Client
	log    *zap.Logger
	grpc   *grpc.Server
}

// NewServer creates a server for client.
func NewServer(cfg ServerConfig, client *prover.Client, opts ...grpc.ServerOption) *Server {
	s := &Server{
		client: client,
		log:    logging.OrNop(cfg.Logger).Named("hostrpc"),
	}
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.MaxRecvMsgSize(cfg.MaxMessageSize),
		grpc.MaxSendMsgSize(cfg.MaxMessageSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{Time: cfg.KeepaliveTime}),
		grpc.UnaryInterceptor(s.logCall),
	}, opts...)
	s.grpc = grpc.NewServer(opts...)
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("Serving", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop stops the server after pending calls complete.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func (s *Server) logCall(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []zap.Field{zap.String("method", info.FullMethod), zap.Duration("elapsed", time.Since(start))}
	if err != nil {
		s.log.Warn("call failed", append(fields, zap.Error(err))...)
	} else {
		s.log.Debug("call", fields...)
	}
	return resp, err
}

// Setup implements ProverServer.
func (s *Server) Setup(ctx context.Context, req *SetupRequest) (*SetupResponse, error) {
	pk, vk, err := s.client.Setup(req.Program)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SetupResponse{ProvingKey: pk, VerifyingKey: vk}, nil
}

// Execute implements ProverServer.
func (s *Server) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	rep, err := s.client.Execute(ctx, req.Program, req.Stdin)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ExecuteResponse{Report: rep}, nil
}

// Prove implements ProverServer.
func (s *Server) Prove(ctx context.Context, req *ProveRequest) (*ProveResponse, error) {
	if req.ProvingKey == nil {
		return nil, status.Error(codes.InvalidArgument, "missing proving key")
	}
	r, err := s.client.Prove(ctx, req.ProvingKey, req.Stdin)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ProveResponse{Receipt: r}, nil
}

func toStatus(err error) error {
	var exit *host.ExitCodeError
	switch {
	case errors.Is(err, prover.ErrUnknownProgram):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, prover.ErrKeyMismatch):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case host.IsFault(err), errors.As(err, &exit):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

var _ ProverServer = (*Server)(nil)
