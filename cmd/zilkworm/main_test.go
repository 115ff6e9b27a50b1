package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stateTest = `{
  "t": {
    "transaction": {
      "data": ["0x", "0x0001"],
      "gasLimit": ["0x0f4240"],
      "value": ["0x00"],
      "to": "0x095e7baea6a6c7c4c2dfeb977efac326af552d87"
    },
    "post": {
      "Shanghai": [
        {"indexes": {"data": 0, "gas": 0, "value": 0}},
        {"indexes": {"data": 1, "gas": 0, "value": 0}}
      ]
    }
  }
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestSetupProveVerify(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "test.json")
	require.NoError(t, os.WriteFile(input, []byte(stateTest), 0o644))
	pk := filepath.Join(dir, "pk.bin")
	vk := filepath.Join(dir, "vk.bin")
	proof := filepath.Join(dir, "proof.bin")
	data := filepath.Join(dir, "data")

	out, err := run(t, "setup", "--data-dir", data, "--pk-path", pk, "--vk-path", vk)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Setup completed.")

	// 21000 + (21000 + 4 + 16), twice
	out, err = run(t, "execute", "--data-dir", data, "--n", "2", "--file-name", input, "--trace")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Zilkworm guest started")
	assert.Contains(t, out, "Program executed successfully.")
	assert.Contains(t, out, "Cumulative Gas Used: 84040")

	out, err = run(t, "prove", "--data-dir", data, "--n", "2", "--file-name", input, "--pk-path", pk, "--proof-path", proof)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Successfully generated proof!")
	assert.Contains(t, out, "Cumulative Gas Used: 84040")

	out, err = run(t, "verify", "--data-dir", data, "--proof-path", proof, "--vk-path", vk)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Successfully verified proof!")
	assert.Contains(t, out, "Cumulative Gas Used: 84040")

	out, err = run(t, "trace", "--data-dir", data)
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2, out)
}

func TestInputMinified(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "test.json")
	require.NoError(t, os.WriteFile(input, []byte(stateTest), 0o644))

	var out bytes.Buffer
	a := &app{out: &out}
	stdin, err := a.buildStdin(3, input)
	require.NoError(t, err)
	require.Len(t, stdin.Hints, 2)

	var compact bytes.Buffer
	compact.WriteString(strings.Join(strings.Fields(stateTest), ""))
	assert.Equal(t, compact.String(), string(stdin.Hints[1]))
	assert.Contains(t, out.String(), "n: 3")
}

func TestBadInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(input, []byte("{"), 0o644))

	_, err := run(t, "execute", "--data-dir", filepath.Join(dir, "data"), "--file-name", input)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestEnvConfig(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "test.json")
	require.NoError(t, os.WriteFile(input, []byte(stateTest), 0o644))
	t.Setenv("ZILKWORM_FILE_NAME", input)
	t.Setenv("ZILKWORM_N", "1")

	out, err := run(t, "execute", "--data-dir", filepath.Join(dir, "data"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cumulative Gas Used: 42020")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	input := filepath.Join(dir, "test.json")
	require.NoError(t, os.WriteFile(input, []byte(stateTest), 0o644))
	cfg := "file-name: " + input + "\nn: 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(data, "zilkworm.yaml"), []byte(cfg), 0o644))

	out, err := run(t, "execute", "--data-dir", data)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cumulative Gas Used: 126060")
}
