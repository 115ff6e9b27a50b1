// Package transition holds the state transition the zilkworm guest calls
// out to: an iteration count and a JSON transaction description in, the
// cumulative gas used out.
package transition

import (
	"errors"
)

var (
	ErrInvalidJSON    = errors.New("transition: invalid JSON")
	ErrNoTests        = errors.New("transition: no test cases")
	ErrNoPostState    = errors.New("transition: no post state for fork")
	ErrIndexRange     = errors.New("transition: post state index out of range")
	ErrQuantity       = errors.New("transition: invalid quantity")
	ErrHexData        = errors.New("transition: invalid hex data")
	ErrIntrinsicGas   = errors.New("transition: intrinsic gas exceeds gas limit")
	ErrInitcodeSize   = errors.New("transition: initcode size exceeds limit")
	ErrGasOverflow    = errors.New("transition: gas overflow")
	ErrZeroIterations = errors.New("transition: iteration count must be positive")
)

// Evaluator runs a state transition n times over the transaction
// description tx and returns the cumulative gas used.
type Evaluator interface {
	Run(n uint32, tx string) (uint64, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(n uint32, tx string) (uint64, error)

// Run calls f.
func (f EvaluatorFunc) Run(n uint32, tx string) (uint64, error) { return f(n, tx) }
