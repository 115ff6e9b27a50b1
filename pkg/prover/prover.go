// Package prover provides setup, execute, prove and verify for guest
// programs over a re-execution proof system: proving runs the guest and
// seals the result; verification checks the seal against the verifying
// key. It produces no succinct proof.
package prover

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/fortiblox/zilkworm/internal/logging"
	"github.com/fortiblox/zilkworm/internal/types"
	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/guest"
	"github.com/fortiblox/zilkworm/pkg/host"
)

var (
	ErrUnknownProgram = errors.New("prover: unknown program")
	ErrKeyMismatch    = errors.New("prover: proving key does not match program")
	ErrVKMismatch     = errors.New("prover: receipt verifying key mismatch")
	ErrDigestMismatch = errors.New("prover: public values digest mismatch")
	ErrBadSeal        = errors.New("prover: invalid seal")
	ErrNonZeroExit    = errors.New("prover: guest exited with non-zero code")
)

const vkDomain = "zilkworm/vk"

// VerifyingKey identifies a program.
type VerifyingKey struct {
	Program string       `cbor:"1,keyasint"`
	Version string       `cbor:"2,keyasint"`
	Digest  abi.VKDigest `cbor:"3,keyasint"`
}

// ProvingKey is what Prove needs to run a program.
type ProvingKey struct {
	VK VerifyingKey `cbor:"1,keyasint"`
}

// Receipt is the result of Prove.
type Receipt struct {
	Program            string                 `cbor:"1,keyasint"`
	VK                 abi.VKDigest           `cbor:"2,keyasint"`
	PublicValues       []byte                 `cbor:"3,keyasint"`
	PublicValuesDigest abi.PublicValuesDigest `cbor:"4,keyasint"`
	ExitCode           uint32                 `cbor:"5,keyasint"`
	Cycles             uint64                 `cbor:"6,keyasint"`
	Seal               types.Digest           `cbor:"7,keyasint"`
}

// ID returns the receipt's seal in base58.
func (r *Receipt) ID() string {
	return r.Seal.String()
}

// Claim returns the (vk, public values digest) pair the receipt proves.
func (r *Receipt) Claim() host.Claim {
	return host.Claim{VK: r.VK, PublicValues: r.PublicValuesDigest}
}

// VKDigest derives the verifying key digest of a program.
func VKDigest(name, version string) abi.VKDigest {
	h := blake3.New()
	h.Write([]byte(vkDomain))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(version))
	var d types.Digest
	h.Sum(d[:0])
	return abi.VKDigest(d.Words())
}

// Seal binds a public values digest to a verifying key.
func Seal(vk abi.VKDigest, pv abi.PublicValuesDigest) types.Digest {
	h := blake3.New()
	h.Write(types.DigestFromWords(vk).Bytes())
	h.Write(pv[:])
	var d types.Digest
	h.Sum(d[:0])
	return d
}

// Setup derives the keys of p.
func Setup(p *guest.Program) (*ProvingKey, *VerifyingKey) {
	vk := VerifyingKey{Program: p.Name, Version: p.Version, Digest: VKDigest(p.Name, p.Version)}
	return &ProvingKey{VK: vk}, &vk
}

// Verify checks r against vk.
func Verify(r *Receipt, vk *VerifyingKey) error {
	if r.Program != vk.Program || r.VK != vk.Digest {
		return fmt.Errorf("%w: receipt %s/%s, key %s/%s", ErrVKMismatch, r.Program, r.VK, vk.Program, vk.Digest)
	}
	if sha256.Sum256(r.PublicValues) != r.PublicValuesDigest {
		return ErrDigestMismatch
	}
	if Seal(r.VK, r.PublicValuesDigest) != r.Seal {
		return ErrBadSeal
	}
	if r.ExitCode != 0 {
		return fmt.Errorf("%w: %d", ErrNonZeroExit, r.ExitCode)
	}
	return nil
}

// Config configures a Client.
type Config struct {
	// Host configures the executor for every run. Prove overrides
	// SkipUnconstrained.
	Host host.Config

	// ProveUnconstrained runs unconstrained regions when proving. By
	// default they are skipped, as a prover does.
	ProveUnconstrained bool

	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{Host: host.DefaultConfig()}
}

// Client runs the programs registered with it.
type Client struct {
	cfg      Config
	log      *zap.Logger
	programs map[string]*guest.Program
}

// NewClient creates a client serving programs.
func NewClient(cfg Config, programs ...*guest.Program) *Client {
	c := &Client{
		cfg:      cfg,
		log:      logging.OrNop(cfg.Logger).Named("prover"),
		programs: make(map[string]*guest.Program),
	}
	for _, p := range programs {
		c.Register(p)
	}
	return c
}

// Register adds p, replacing any program of the same name.
func (c *Client) Register(p *guest.Program) {
	c.programs[p.Name] = p
}

// Program returns the program registered under name.
func (c *Client) Program(name string) (*guest.Program, error) {
	p, ok := c.programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
	}
	return p, nil
}

// Setup derives the keys of the named program.
func (c *Client) Setup(name string) (*ProvingKey, *VerifyingKey, error) {
	p, err := c.Program(name)
	if err != nil {
		return nil, nil, err
	}
	pk, vk := Setup(p)
	c.log.Info("Setup completed", zap.String("program", name), zap.Stringer("vk", vk.Digest))
	return pk, vk, nil
}

// Execute runs the named program without proving.
func (c *Client) Execute(ctx context.Context, name string, stdin *host.Stdin) (*host.Report, error) {
	p, err := c.Program(name)
	if err != nil {
		return nil, err
	}
	rep, err := host.Run(ctx, c.hostConfig(c.cfg.Host.SkipUnconstrained), stdin, p.Entrypoint())
	if err != nil {
		return nil, err
	}
	c.log.Info("Program executed",
		zap.String("program", name),
		zap.Uint32("exit_code", rep.ExitCode),
		zap.Uint64("cycles", rep.Cycles))
	return rep, nil
}

// Prove runs the program pk belongs to and seals its public values.
func (c *Client) Prove(ctx context.Context, pk *ProvingKey, stdin *host.Stdin) (*Receipt, error) {
	p, err := c.Program(pk.VK.Program)
	if err != nil {
		return nil, err
	}
	if VKDigest(p.Name, p.Version) != pk.VK.Digest {
		return nil, fmt.Errorf("%w: %s", ErrKeyMismatch, p.Name)
	}
	rep, err := c.prove(ctx, p, stdin)
	if err != nil {
		return nil, err
	}
	if err := rep.RequireSuccess(); err != nil {
		return nil, err
	}
	r := &Receipt{
		Program:            p.Name,
		VK:                 pk.VK.Digest,
		PublicValues:       bytes.Clone(rep.PublicValues),
		PublicValuesDigest: rep.PublicValuesDigest,
		ExitCode:           rep.ExitCode,
		Cycles:             rep.Cycles,
		Seal:               Seal(pk.VK.Digest, rep.PublicValuesDigest),
	}
	c.log.Info("Generated proof",
		zap.String("program", p.Name),
		zap.String("receipt", r.ID()),
		zap.Uint64("cycles", r.Cycles))
	return r, nil
}

// Verify checks r against vk.
func (c *Client) Verify(r *Receipt, vk *VerifyingKey) error {
	if err := Verify(r, vk); err != nil {
		return err
	}
	c.log.Debug("Verified proof", zap.String("receipt", r.ID()))
	return nil
}

// prove runs p the way a prover does. Unless unconstrained regions are
// proven, p is first executed to capture the hints its regions write,
// then rerun with the regions skipped and those hints replayed.
func (c *Client) prove(ctx context.Context, p *guest.Program, stdin *host.Stdin) (*host.Report, error) {
	if c.cfg.ProveUnconstrained {
		return host.Run(ctx, c.hostConfig(false), stdin, p.Entrypoint())
	}

	pre := c.hostConfig(false)
	pre.Stdout, pre.Stderr, pre.Recorder = nil, nil, nil
	hinted, err := host.Run(ctx, pre, stdin, p.Entrypoint())
	if err != nil {
		return nil, err
	}

	cfg := c.hostConfig(true)
	cfg.ReplayHints = hinted.RegionHints
	return host.Run(ctx, cfg, stdin, p.Entrypoint())
}

func (c *Client) hostConfig(skip bool) host.Config {
	cfg := c.cfg.Host
	cfg.SkipUnconstrained = skip
	if cfg.Logger == nil {
		cfg.Logger = c.log
	}
	return cfg
}
