package host

import "github.com/fortiblox/zilkworm/pkg/abi"

// Event describes one syscall issued by a guest.
type Event struct {
	Seq           uint64    `cbor:"seq"`
	Code          abi.Code  `cbor:"code"`
	Name          string    `cbor:"name"`
	Args          [5]uint32 `cbor:"args"`
	Ret           uint32    `cbor:"ret"`
	Cycle         uint64    `cbor:"cycle"`
	Unconstrained bool      `cbor:"unconstrained"`
	Err           string    `cbor:"err,omitempty"`
}

// Recorder receives every syscall event of a run.
type Recorder interface {
	Record(ev Event) error
}

// MemoryRecorder keeps events in a slice.
type MemoryRecorder struct {
	Events []Event
}

// Record implements Recorder.
func (r *MemoryRecorder) Record(ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

// Codes returns the code of each recorded event.
func (r *MemoryRecorder) Codes() []abi.Code {
	out := make([]abi.Code, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Code
	}
	return out
}
