package server

import (
	"github.com/fxamacker/cbor/v2"
)

// codecName is the content subtype both transports negotiate.
const codecName = "cbor"

// cborCodec marshals service messages as CBOR. It satisfies both
// connect.Codec and the gRPC encoding.Codec, which share a method set.
type cborCodec struct{}

var cborEnc cbor.EncMode

func init() {
	var err error
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func (cborCodec) Name() string { return codecName }

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cborEnc.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
