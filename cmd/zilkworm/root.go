package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fortiblox/zilkworm/internal/logging"
	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/hostrpc"
	"github.com/fortiblox/zilkworm/pkg/prover"
	"github.com/fortiblox/zilkworm/pkg/receipts"
	"github.com/fortiblox/zilkworm/pkg/tracestore"
	"github.com/fortiblox/zilkworm/pkg/zilkworm"
)

// Config keys. Each is bound to the flag of the same name, the
// ZILKWORM_<KEY> environment variable and the zilkworm.yaml key.
const (
	keyDataDir           = "data-dir"
	keyLogLevel          = "log-level"
	keyN                 = "n"
	keyFileName          = "file-name"
	keyPKPath            = "pk-path"
	keyVKPath            = "vk-path"
	keyProofPath         = "proof-path"
	keyRemote            = "remote"
	keyListen            = "listen"
	keySkipUnconstrained = "skip-unconstrained"
	keyMaxCycles         = "max-cycles"
	keyTrace             = "trace"
)

// app is the state shared by all commands.
type app struct {
	v   *viper.Viper
	out io.Writer
	log *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "zilkworm",
		Short:         "Run, prove and verify the zilkworm state transition guest",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String(keyDataDir, ".zilkworm", "Directory for the receipt store, traces and zilkworm.yaml")
	flags.String(keyLogLevel, "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.setupCmd(),
		a.executeCmd(),
		a.proveCmd(),
		a.verifyCmd(),
		a.serveCmd(),
		a.traceCmd(),
	)
	return root
}

// init loads configuration and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix("zilkworm")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	a.v.SetConfigName("zilkworm")
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(a.v.GetString(keyDataDir))
	a.v.AddConfigPath(".")
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log, err := logging.New(a.v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) dataPath(name string) string {
	return filepath.Join(a.v.GetString(keyDataDir), name)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// backend runs the guest locally or remotely.
type backend interface {
	Setup(ctx context.Context, program string) (*prover.ProvingKey, *prover.VerifyingKey, error)
	Execute(ctx context.Context, program string, stdin *host.Stdin) (*host.Report, error)
	Prove(ctx context.Context, pk *prover.ProvingKey, stdin *host.Stdin) (*prover.Receipt, error)
	Close() error
}

type localBackend struct {
	client   *prover.Client
	receipts *receipts.Store
	trace    *tracestore.RunRecorder
	traces   *tracestore.Store
}

func (b *localBackend) Setup(_ context.Context, program string) (*prover.ProvingKey, *prover.VerifyingKey, error) {
	return b.client.Setup(program)
}

func (b *localBackend) Execute(ctx context.Context, program string, stdin *host.Stdin) (*host.Report, error) {
	rep, err := b.client.Execute(ctx, program, stdin)
	return rep, b.finishTrace(rep, err)
}

func (b *localBackend) Prove(ctx context.Context, pk *prover.ProvingKey, stdin *host.Stdin) (*prover.Receipt, error) {
	r, err := b.client.Prove(ctx, pk, stdin)
	var rep *host.Report
	if r != nil {
		rep = &host.Report{ExitCode: r.ExitCode, Cycles: r.Cycles}
	}
	if err = b.finishTrace(rep, err); err != nil {
		return nil, err
	}
	return r, b.receipts.Put(r)
}

// finishTrace stores the trace, if any, and returns runErr.
func (b *localBackend) finishTrace(rep *host.Report, runErr error) error {
	if b.trace == nil {
		return runErr
	}
	if err := b.trace.Finish(rep, runErr); err != nil && runErr == nil {
		return fmt.Errorf("store trace: %w", err)
	}
	return runErr
}

func (b *localBackend) Close() error {
	var errs []error
	if b.traces != nil {
		errs = append(errs, b.traces.Close())
	}
	errs = append(errs, b.receipts.Close())
	return errors.Join(errs...)
}

type remoteBackend struct {
	*hostrpc.Client
}

// backend opens the backend the command runs against. runID names the
// trace when tracing is enabled.
func (a *app) backend(runID string) (backend, error) {
	if remote := a.v.GetString(keyRemote); remote != "" {
		c, err := hostrpc.Dial(remote)
		if err != nil {
			return nil, err
		}
		a.log.Info("Using remote prover", zap.String("addr", remote))
		return remoteBackend{c}, nil
	}

	store, err := receipts.Open(receipts.DefaultConfig(a.dataPath("receipts.db")))
	if err != nil {
		return nil, err
	}
	b := &localBackend{receipts: store}

	cfg := prover.DefaultConfig()
	cfg.Logger = a.log
	cfg.Host.Logger = a.log
	cfg.Host.MaxCycles = a.v.GetUint64(keyMaxCycles)
	cfg.Host.SkipUnconstrained = a.v.GetBool(keySkipUnconstrained)
	cfg.Host.Verifier = store

	if a.v.GetBool(keyTrace) {
		traces, err := tracestore.Open(tracestore.DefaultConfig(a.dataPath("traces")))
		if err != nil {
			store.Close()
			return nil, err
		}
		rec, err := traces.Recorder(runID, zilkworm.Name)
		if err != nil {
			traces.Close()
			store.Close()
			return nil, err
		}
		b.traces, b.trace = traces, rec
		cfg.Host.Recorder = rec
		a.log.Info("Recording trace", zap.String("run", runID))
	}

	b.client = prover.NewClient(cfg, zilkworm.Default())
	return b, nil
}
