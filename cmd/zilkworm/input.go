package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fortiblox/zilkworm/pkg/host"
)

// buildStdin writes n as the first hint and the minified JSON file as
// the second.
func (a *app) buildStdin(n uint32, path string) (*host.Stdin, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	stdin := host.NewStdin()
	if err := stdin.Write(n); err != nil {
		return nil, err
	}
	stdin.WriteSlice(compact.Bytes())

	a.printf("n: %d", n)
	a.printf("Input JSON bytes: %d", compact.Len())
	return stdin, nil
}
