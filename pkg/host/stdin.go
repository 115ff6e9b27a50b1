package host

import (
	"fmt"

	"github.com/fortiblox/zilkworm/internal/codec"
	"github.com/fortiblox/zilkworm/pkg/abi"
)

// Stdin is the input a guest is run with: a FIFO of hints, the raw fd 0
// byte stream, and the proofs the guest may verify.
type Stdin struct {
	Hints  [][]byte `cbor:"hints"`
	Raw    []byte   `cbor:"raw"`
	Proofs []Claim  `cbor:"proofs"`
}

// NewStdin creates an empty input.
func NewStdin() *Stdin {
	return &Stdin{}
}

// Write queues the CBOR encoding of v as one hint.
func (s *Stdin) Write(v any) error {
	enc, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode hint: %w", err)
	}
	s.Hints = append(s.Hints, enc)
	return nil
}

// WriteSlice queues p as one hint, unencoded.
func (s *Stdin) WriteSlice(p []byte) {
	s.Hints = append(s.Hints, append([]byte(nil), p...))
}

// WriteRaw appends p to the fd 0 stream.
func (s *Stdin) WriteRaw(p []byte) {
	s.Raw = append(s.Raw, p...)
}

// WriteProof makes a proof claim available to VERIFY_PROOF.
func (s *Stdin) WriteProof(vk abi.VKDigest, pv abi.PublicValuesDigest) {
	s.Proofs = append(s.Proofs, Claim{VK: vk, PublicValues: pv})
}

// Clone returns a deep copy.
func (s *Stdin) Clone() *Stdin {
	out := &Stdin{
		Hints:  make([][]byte, len(s.Hints)),
		Raw:    append([]byte(nil), s.Raw...),
		Proofs: append([]Claim(nil), s.Proofs...),
	}
	for i, h := range s.Hints {
		out.Hints[i] = append([]byte(nil), h...)
	}
	return out
}
