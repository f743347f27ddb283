// Package decode implements the universal decoder: read any v1-v6
// file, dispatch to the resolved layer and codec(s), and reconstruct
// the original bytes. It layers on top of package container's
// DecodeAny (framing), package mbn (multi-stream assembly) and package
// layer (semantic reconstruction).
package decode

import (
	"github.com/gcomneno/onion-compressor-framework/internal/codec"
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/layer"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
)

// Info carries the resolved layer/codec identifiers alongside the
// reconstructed plaintext, for callers (e.g. `decompress`) that want to
// report on a file without a second parse pass.
type Info struct {
	Layer string
	Codec string
	Data  []byte
}

// Decode reconstructs the original input bytes from any supported
// container version.
func Decode(buf []byte) (*Info, error) {
	data, layerName, codecName, meta, err := container.DecodeAny(buf)
	if err != nil {
		return nil, err
	}

	L, ok := layer.ByName(layerName)
	if !ok {
		return nil, errs.NewCorruptPayload("decode: unknown layer \""+layerName+"\"", nil)
	}

	if codecName == codec.MBN.Name() {
		plain, err := assembleMBN(L, data)
		if err != nil {
			return nil, err
		}
		return &Info{Layer: layerName, Codec: codecName, Data: plain}, nil
	}

	streamMap := singleStreamMap(L.Code(), data)
	plain, err := L.Decode(streamMap, meta)
	if err != nil {
		return nil, err
	}
	return &Info{Layer: layerName, Codec: codecName, Data: plain}, nil
}

// assembleMBN unpacks an MBN bundle, decompresses each declared
// stream under its own codec, pulls the META stream out into the
// layer meta slot, and hands the rest to the layer.
func assembleMBN(L layer.Layer, raw []byte) ([]byte, error) {
	streams, err := mbn.Unpack(raw)
	if err != nil {
		return nil, err
	}
	streamMap := make(map[uint8][]byte, len(streams))
	var meta []byte
	for _, s := range streams {
		impl, err := codec.ByCode(codec.Code(s.Codec))
		if err != nil {
			return nil, err
		}
		plain, err := impl.Decompress(s.Comp, s.Ulen)
		if err != nil {
			return nil, err
		}
		if s.Stype == mbn.StypeMeta {
			meta = plain
			continue
		}
		streamMap[s.Stype] = plain
	}
	return L.Decode(streamMap, meta)
}

// singleStreamMap places a bare (non-MBN) v6 payload's already
// decompressed bytes under the layer's canonical single stype.
func singleStreamMap(code container.LayerCode, data []byte) map[uint8][]byte {
	names := layer.StreamNamesForLayer(code)
	stype := uint8(mbn.StypeMain)
	if len(names) > 0 {
		stype = names[0]
	}
	return map[uint8][]byte{stype: data}
}
