package hostrpc

import (
	"github.com/fortiblox/zilkworm/internal/codec"
)

// Codec is the gRPC codec of the Prover service. Messages are CBOR.
type Codec struct{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) { return codec.Marshal(v) }

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error { return codec.Unmarshal(data, v) }

// Name implements encoding.Codec.
func (Codec) Name() string { return "cbor" }
