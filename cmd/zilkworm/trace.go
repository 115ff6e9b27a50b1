package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fortiblox/zilkworm/pkg/tracestore"
)

func (a *app) traceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace [run-id]",
		Short: "List recorded runs, or print the syscalls of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := tracestore.Open(tracestore.DefaultConfig(a.dataPath("traces")))
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				runs, err := store.Runs()
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "RUN\tPROGRAM\tEVENTS\tCYCLES\tEXIT\tERROR")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.Program, r.Events, r.Cycles, r.ExitCode, r.Err)
				}
				return nil
			}

			events, err := store.Events(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "SEQ\tCYCLE\tSYSCALL\tARGS\tRET\tMODE\tERROR")
			for _, ev := range events {
				mode := "constrained"
				if ev.Unconstrained {
					mode = "unconstrained"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%#x\t%#x\t%s\t%s\n", ev.Seq, ev.Cycle, ev.Name, ev.Args, ev.Ret, mode, ev.Err)
			}
			return nil
		},
	}
}
