// Package container implements the v6 container framing (the current
// write format) plus read-only dispatch for legacy v1-v5 containers.
// Headers are built with manual, field-by-field byte writes rather
// than a struct-tag binary library (see DESIGN.md).
package container

import (
	"bytes"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

var magicGCC = []byte("GCC")

const version6 = 6

// Flags bits.
const (
	FHasMeta       = 0x01
	FHasPayloadLen = 0x02
	FKindExtract   = 0x80
)

// knownFlags is the set of bits this implementation understands;
// anything else set makes the header UnsupportedVersion.
const knownFlags = FHasMeta | FHasPayloadLen | FKindExtract

// LayerCode is the stable numeric layer_code (see DESIGN.md's "Layer
// code ordering" resolution).
type LayerCode uint8

const (
	LayerBytes             LayerCode = 0
	LayerVC0               LayerCode = 1
	LayerSyllablesIt       LayerCode = 2
	LayerWordsIt           LayerCode = 3
	LayerLinesDict         LayerCode = 4
	LayerLinesRLE          LayerCode = 5
	LayerSplitTextNums     LayerCode = 6
	LayerTplLinesV0        LayerCode = 7
	LayerTplLinesSharedV0  LayerCode = 8
)

var layerNames = map[LayerCode]string{
	LayerBytes:            "bytes",
	LayerVC0:               "vc0",
	LayerSyllablesIt:       "syllables_it",
	LayerWordsIt:           "words_it",
	LayerLinesDict:         "lines_dict",
	LayerLinesRLE:          "lines_rle",
	LayerSplitTextNums:     "split_text_nums",
	LayerTplLinesV0:        "tpl_lines_v0",
	LayerTplLinesSharedV0:  "tpl_lines_shared_v0",
}

func (l LayerCode) Name() string { return layerNames[l] }

func LayerByName(name string) (LayerCode, bool) {
	for c, n := range layerNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Header is the parsed v6 header plus its payload span.
type Header struct {
	Flags     uint8
	Layer     LayerCode
	Codec     uint8
	Meta      []byte
	Payload   []byte
}

// Encode builds a complete v6 file: the 7-byte header, optional
// varint-framed meta, optional varint payload length, then payload.
func Encode(layer LayerCode, codec uint8, meta, payload []byte, extract bool) []byte {
	var flags uint8
	if len(meta) > 0 {
		flags |= FHasMeta
	}
	if extract {
		flags |= FKindExtract
	}

	out := append([]byte{}, magicGCC...)
	out = append(out, version6, flags, byte(layer), codec)
	if flags&FHasMeta != 0 {
		out = varint.Put(out, uint64(len(meta)))
		out = append(out, meta...)
	}
	out = append(out, payload...)
	return out
}

// EncodeWithPayloadLen is Encode but also sets F_HAS_PAYLOAD_LEN and
// frames the payload length explicitly, for writers that want an
// explicit boundary instead of EOF-terminated payload.
func EncodeWithPayloadLen(layer LayerCode, codec uint8, meta, payload []byte, extract bool) []byte {
	var flags uint8
	if len(meta) > 0 {
		flags |= FHasMeta
	}
	flags |= FHasPayloadLen
	if extract {
		flags |= FKindExtract
	}

	out := append([]byte{}, magicGCC...)
	out = append(out, version6, flags, byte(layer), codec)
	if flags&FHasMeta != 0 {
		out = varint.Put(out, uint64(len(meta)))
		out = append(out, meta...)
	}
	out = varint.Put(out, uint64(len(payload)))
	out = append(out, payload...)
	return out
}

// Decode parses a v6 header and payload span. Callers that need
// universal (v1-v6) reading should use DecodeAny instead.
func Decode(buf []byte) (*Header, error) {
	if len(buf) < 7 {
		return nil, errs.NewCorruptPayload("container: truncated header", nil)
	}
	if !bytes.Equal(buf[:3], magicGCC) {
		return nil, errs.NewBadMagic("container: bad magic")
	}
	version := buf[3]
	if version != version6 {
		return nil, errs.NewUnsupportedVersion("container: not a v6 header", nil)
	}
	flags := buf[4]
	if flags&^uint8(knownFlags) != 0 {
		return nil, errs.NewUnsupportedVersion("container: reserved flag bits set", nil)
	}
	layer := LayerCode(buf[5])
	codec := buf[6]
	rest := buf[7:]

	var meta []byte
	if flags&FHasMeta != 0 {
		mlen, n, err := varint.Get(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		if uint64(len(rest)) < mlen {
			return nil, errs.NewCorruptPayload("container: meta length out of bounds", nil)
		}
		meta = rest[:mlen]
		rest = rest[mlen:]
	}

	var payload []byte
	if flags&FHasPayloadLen != 0 {
		plen, n, err := varint.Get(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		if uint64(len(rest)) < plen {
			return nil, errs.NewCorruptPayload("container: payload length out of bounds", nil)
		}
		payload = rest[:plen]
	} else {
		payload = rest
	}

	return &Header{Flags: flags, Layer: layer, Codec: codec, Meta: meta, Payload: payload}, nil
}
