package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc/grpclog"

	"github.com/fortiblox/zilkworm/internal/logging"
	"github.com/fortiblox/zilkworm/pkg/hostrpc"
	"github.com/fortiblox/zilkworm/pkg/prover"
	"github.com/fortiblox/zilkworm/pkg/receipts"
	"github.com/fortiblox/zilkworm/pkg/zilkworm"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prover over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grpclog.SetLoggerV2(logging.NewGRPCLogger(a.log))

			store, err := receipts.Open(receipts.DefaultConfig(a.dataPath("receipts.db")))
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := prover.DefaultConfig()
			cfg.Logger = a.log
			cfg.Host.Logger = a.log
			cfg.Host.MaxCycles = a.v.GetUint64(keyMaxCycles)
			cfg.Host.Verifier = store

			scfg := hostrpc.DefaultServerConfig()
			scfg.Logger = a.log
			srv := hostrpc.NewServer(scfg, prover.NewClient(cfg, zilkworm.Default()))

			lis, err := net.Listen("tcp", a.v.GetString(keyListen))
			if err != nil {
				return err
			}

			// Handle shutdown signals
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigChan
				a.log.Info("Received signal, shutting down", zap.Stringer("signal", sig))
				srv.Stop()
			}()

			return srv.Serve(lis)
		},
	}
	cmd.Flags().String(keyListen, "127.0.0.1:7420", "Listen address")
	cmd.Flags().Uint64(keyMaxCycles, 1<<32, "Cycle limit per run (0 = unlimited)")
	return cmd
}
