package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortiblox/zilkworm/pkg/prover"
	"github.com/fortiblox/zilkworm/pkg/zilkworm"
)

func addInputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Uint32(keyN, 1, "First input: the iteration count")
	flags.String(keyFileName, "test.json", "JSON file to read, minify, and pass to the guest as the second input")
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String(keyRemote, "", "Address of a remote prover (zilkworm serve)")
	flags.Bool(keySkipUnconstrained, false, "Skip unconstrained regions, as the prover does")
	flags.Uint64(keyMaxCycles, 1<<32, "Cycle limit (0 = unlimited)")
	flags.Bool(keyTrace, false, "Record the syscall trace in the data directory")
}

func newRunID() string {
	return time.Now().UTC().Format("20060102T150405.000000000")
}

func (a *app) setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Produce the proving and verifying keys and save them to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend(newRunID())
			if err != nil {
				return err
			}
			defer b.Close()

			pk, vk, err := b.Setup(cmd.Context(), zilkworm.Name)
			if err != nil {
				return err
			}
			pkPath, vkPath := a.v.GetString(keyPKPath), a.v.GetString(keyVKPath)
			if err := prover.SaveKey(pkPath, pk); err != nil {
				return fmt.Errorf("write pk: %w", err)
			}
			if err := prover.SaveKey(vkPath, vk); err != nil {
				return fmt.Errorf("write vk: %w", err)
			}
			a.printf("Setup completed. Saved pk -> %s, vk -> %s", pkPath, vkPath)
			return nil
		},
	}
	cmd.Flags().String(keyPKPath, "pk.bin", "File path to persist the proving key")
	cmd.Flags().String(keyVKPath, "vk.bin", "File path to persist the verifying key")
	cmd.Flags().String(keyRemote, "", "Address of a remote prover (zilkworm serve)")
	return cmd
}

func (a *app) executeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute the guest program without proving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdin, err := a.buildStdin(a.v.GetUint32(keyN), a.v.GetString(keyFileName))
			if err != nil {
				return err
			}
			runID := newRunID()
			b, err := a.backend(runID)
			if err != nil {
				return err
			}
			defer b.Close()

			rep, err := b.Execute(cmd.Context(), zilkworm.Name, stdin)
			if err != nil {
				return err
			}
			if len(rep.Stdout) > 0 {
				fmt.Fprint(a.out, string(rep.Stdout))
			}
			if err := rep.RequireSuccess(); err != nil {
				return err
			}
			gas, err := zilkworm.DecodeGas(rep.PublicValues)
			if err != nil {
				return err
			}
			a.printf("Program executed successfully.")
			a.printf("Cumulative Gas Used: %d", gas)
			a.printf("Number of cycles: %d", rep.Cycles)
			if a.v.GetBool(keyTrace) {
				a.printf("Trace: %s", runID)
			}
			return nil
		},
	}
	addInputFlags(cmd)
	addRunFlags(cmd)
	return cmd
}

func (a *app) proveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Prove with an existing proving key and save the proof to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := prover.LoadProvingKey(a.v.GetString(keyPKPath))
			if err != nil {
				return fmt.Errorf("read pk: %w", err)
			}
			stdin, err := a.buildStdin(a.v.GetUint32(keyN), a.v.GetString(keyFileName))
			if err != nil {
				return err
			}
			b, err := a.backend(newRunID())
			if err != nil {
				return err
			}
			defer b.Close()

			r, err := b.Prove(cmd.Context(), pk, stdin)
			if err != nil {
				return fmt.Errorf("failed to generate proof: %w", err)
			}
			gas, err := zilkworm.DecodeGas(r.PublicValues)
			if err != nil {
				return err
			}
			a.printf("Successfully generated proof!")
			a.printf("Cumulative Gas Used: %d", gas)

			proofPath := a.v.GetString(keyProofPath)
			if err := prover.SaveReceipt(proofPath, r); err != nil {
				return fmt.Errorf("write proof: %w", err)
			}
			a.printf("Saved proof -> %s", proofPath)
			return nil
		},
	}
	addInputFlags(cmd)
	addRunFlags(cmd)
	cmd.Flags().String(keyPKPath, "pk.bin", "File path to read the proving key")
	cmd.Flags().String(keyProofPath, "proof.bin", "File path to persist the proof")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a proof from disk against a verifying key from disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := prover.LoadReceipt(a.v.GetString(keyProofPath))
			if err != nil {
				return fmt.Errorf("read proof: %w", err)
			}
			vk, err := prover.LoadVerifyingKey(a.v.GetString(keyVKPath))
			if err != nil {
				return fmt.Errorf("read vk: %w", err)
			}
			if err := prover.Verify(r, vk); err != nil {
				return fmt.Errorf("failed to verify proof: %w", err)
			}
			gas, err := zilkworm.DecodeGas(r.PublicValues)
			if err != nil {
				return err
			}
			a.log.Debug("verified", zap.String("receipt", r.ID()))
			a.printf("Successfully verified proof!")
			a.printf("Cumulative Gas Used: %d", gas)
			return nil
		},
	}
	cmd.Flags().String(keyProofPath, "proof.bin", "File path to read the proof")
	cmd.Flags().String(keyVKPath, "vk.bin", "File path to read the verifying key")
	return cmd
}
