package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
)

// BytesLayer is the identity transform: single MAIN stream, no meta.
type BytesLayer struct{}

func (BytesLayer) Code() container.LayerCode { return container.LayerBytes }

func (BytesLayer) Encode(data []byte) (Result, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return Result{Streams: map[uint8][]byte{mbn.StypeMain: out}}, nil
}

func (BytesLayer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	s, ok := streams[mbn.StypeMain]
	if !ok {
		return nil, errs.NewCorruptPayload("bytes: missing MAIN stream", nil)
	}
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}
