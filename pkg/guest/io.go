package guest

import (
	"fmt"

	"github.com/fortiblox/zilkworm/internal/codec"
	"github.com/fortiblox/zilkworm/pkg/abi"
)

// Read decodes the next hint as a CBOR value of type T.
func Read[T any](env *abi.Env) T {
	var v T
	if err := codec.Unmarshal(ReadVec(env), &v); err != nil {
		panic(fmt.Errorf("guest: decode hint as %T: %w", v, err))
	}
	return v
}

// ReadVec returns the next hint as raw bytes.
func ReadVec(env *abi.Env) []byte {
	return env.Bytes(env.ReadVecRaw())
}

// Commit appends the CBOR encoding of v to the public values.
func Commit[T any](env *abi.Env, v T) {
	enc, err := codec.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("guest: encode public value %T: %w", v, err))
	}
	env.Write(abi.FdPublicValues, enc)
}

// CommitSlice appends p to the public values unencoded.
func CommitSlice(env *abi.Env, p []byte) {
	env.Write(abi.FdPublicValues, p)
}

// Print writes s to stdout.
func Print(env *abi.Env, s string) {
	env.Write(abi.FdStdout, []byte(s))
}

// Println writes s and a newline to stdout.
func Println(env *abi.Env, s string) {
	Print(env, s+"\n")
}

// Eprintln writes s and a newline to stderr.
func Eprintln(env *abi.Env, s string) {
	env.Write(abi.FdStderr, []byte(s+"\n"))
}

// WriteHint queues p as a hint for later reading. Used from unconstrained
// code to hand a result to constrained code.
func WriteHint(env *abi.Env, p []byte) {
	env.Write(abi.FdHint, p)
}
