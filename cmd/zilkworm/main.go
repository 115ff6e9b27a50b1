// zilkworm runs the state transition guest: setup, execute, prove and
// verify, locally or against a remote prover, plus a prover server and a
// trace viewer.
package main

import (
	"os"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
