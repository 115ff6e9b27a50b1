package host

import (
	"errors"
	"fmt"

	"github.com/fortiblox/zilkworm/pkg/abi"
)

// Execution errors. Every one of them is fatal to the guest.
var (
	ErrNoHalt              = errors.New("guest returned without halting")
	ErrAfterHalt           = errors.New("syscall after halt")
	ErrGuestPanic          = errors.New("guest panic")
	ErrNestedUnconstrained = errors.New("enter unconstrained while unconstrained")
	ErrNotUnconstrained    = errors.New("exit unconstrained while constrained")
	ErrUnconstrainedOp     = errors.New("operation not allowed in unconstrained mode")
	ErrHintQueueEmpty      = errors.New("hint queue empty")
	ErrHintLength          = errors.New("hint length mismatch")
	ErrInputExhausted      = errors.New("input exhausted")
	ErrInvalidFd           = errors.New("invalid file descriptor")
	ErrInvalidCommit       = errors.New("invalid commit index")
	ErrCommitMismatch      = errors.New("committed digest does not match public values")
	ErrIncompleteCommit    = errors.New("public values digest partially committed")
	ErrProofNotFound       = errors.New("proof not found")
	ErrAlreadyRun          = errors.New("executor already run")
)

// Fault is a fatal contract violation raised while running a guest.
type Fault struct {
	// Op names the faulting operation: a syscall name, "load", "store"
	// or "guest".
	Op string
	// Code is the syscall code when Op is a syscall.
	Code abi.Code
	// Cycle is the proven cycle count at the fault.
	Cycle uint64
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault in %s at cycle %d: %v", f.Op, f.Cycle, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err is a guest fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
