// Package zilkworm is the state transition guest: it reads an iteration
// count and a JSON transaction description, runs the transition and
// commits the cumulative gas used.
package zilkworm

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/fortiblox/zilkworm/internal/codec"
	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/guest"
	"github.com/fortiblox/zilkworm/pkg/transition"
)

// Program identity, bound into the verifying key.
const (
	Name    = "zilkworm"
	Version = "0.1.0"
)

// StartedMessage is printed once the evaluator is built.
const StartedMessage = "Zilkworm guest started"

// ErrInvalidUTF8 aborts the guest when the transaction hint is not text.
var ErrInvalidUTF8 = errors.New("zilkworm: transaction JSON is not valid UTF-8")

type evaluatorKey struct{}

// NewProgram builds the guest around the evaluator newEvaluator returns.
// The evaluator is constructed by an init routine, before main runs.
func NewProgram(newEvaluator func() transition.Evaluator) *guest.Program {
	p := guest.NewProgram(Name, Version, func(env *abi.Env) {
		ev := env.Local(evaluatorKey{}).(transition.Evaluator)
		n := guest.Read[uint32](env)
		raw := guest.ReadVec(env)
		if !utf8.Valid(raw) {
			guest.Eprintln(env, ErrInvalidUTF8.Error())
			panic(ErrInvalidUTF8)
		}

		guest.Println(env, StartedMessage)
		gas, err := ev.Run(n, string(raw))
		if err != nil {
			err = fmt.Errorf("zilkworm: state transition: %w", err)
			guest.Eprintln(env, err.Error())
			panic(err)
		}
		guest.Println(env, fmt.Sprintf("[state_transition] run successful, gas used: %d", gas))
		guest.Commit(env, gas)
	})
	p.Init(func(env *abi.Env) { env.SetLocal(evaluatorKey{}, newEvaluator()) })
	return p
}

// Default returns the guest with the intrinsic gas evaluator.
func Default() *guest.Program {
	return NewProgram(func() transition.Evaluator { return transition.NewIntrinsic() })
}

// DecodeGas reads the gas value the guest commits from its public values.
func DecodeGas(publicValues []byte) (uint64, error) {
	var gas uint64
	if err := codec.Unmarshal(publicValues, &gas); err != nil {
		return 0, fmt.Errorf("decode gas: %w", err)
	}
	return gas, nil
}
