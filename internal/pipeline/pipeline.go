// Package pipeline implements the file-mode pipeline engine: running a
// pipeline spec against input bytes to produce a v6 container, choosing
// between the bare single-stream framing and an MBN bundle via the
// `mbn` auto rule.
package pipeline

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/gcomneno/onion-compressor-framework/internal/codec"
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/layer"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// SpecSchema is the required `spec` discriminator value.
const SpecSchema = "gcc-ocf.pipeline.v1"

// Spec is a parsed pipeline spec. Unknown top-level keys are rejected
// during Parse.
type Spec struct {
	SpecName     string            `json:"spec"`
	Name         string            `json:"name,omitempty"`
	Layer        string            `json:"layer"`
	Codec        string            `json:"codec,omitempty"`
	StreamCodecs map[string]string `json:"stream_codecs,omitempty"`
	MBN          *bool             `json:"mbn,omitempty"`
}

// stypeByName / nameByStype mirror the `MAIN|TEXT|NUMS|TPL|IDS|META|
// CONS|VOWELS|MASK` stream-name vocabulary used by stream_codecs.
var stypeByName = map[string]uint8{
	"MAIN":   mbn.StypeMain,
	"MASK":   mbn.StypeMask,
	"VOWELS": mbn.StypeVowels,
	"CONS":   mbn.StypeCons,
	"TEXT":   mbn.StypeText,
	"NUMS":   mbn.StypeNums,
	"TPL":    mbn.StypeTpl,
	"IDS":    mbn.StypeIDs,
	"META":   mbn.StypeMeta,
}

var nameByStype = func() map[uint8]string {
	out := make(map[uint8]string, len(stypeByName))
	for name, stype := range stypeByName {
		out[stype] = name
	}
	return out
}()

// Parse validates and decodes a pipeline spec document, rejecting
// unknown top-level keys and unknown layer/codec identifiers.
func Parse(raw []byte) (*Spec, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var s Spec
	if err := dec.Decode(&s); err != nil {
		return nil, errs.NewUsageError("pipeline: invalid spec JSON", err)
	}
	if s.SpecName != SpecSchema {
		return nil, errs.NewUsageError("pipeline: unsupported spec schema \""+s.SpecName+"\"", nil)
	}
	if _, ok := layer.ByName(s.Layer); !ok {
		return nil, errs.NewUsageError("pipeline: unknown layer \""+s.Layer+"\"", nil)
	}
	if s.Codec != "" {
		if _, ok := codec.CodeByName(s.Codec); !ok {
			return nil, errs.NewUsageError("pipeline: unknown codec \""+s.Codec+"\"", nil)
		}
	}
	for name, cname := range s.StreamCodecs {
		if _, ok := stypeByName[name]; !ok {
			return nil, errs.NewUsageError("pipeline: unknown stream name \""+name+"\"", nil)
		}
		if _, ok := codec.CodeByName(cname); !ok {
			return nil, errs.NewUsageError("pipeline: unknown codec \""+cname+"\" for stream "+name, nil)
		}
	}
	return &s, nil
}

func (s *Spec) defaultCodecName() string {
	if s.Codec == "" {
		return "zlib"
	}
	return s.Codec
}

func (s *Spec) codecNameFor(stype uint8) string {
	if name, ok := nameByStype[stype]; ok {
		if c, ok := s.StreamCodecs[name]; ok {
			return c
		}
	}
	return s.defaultCodecName()
}

// useMBN implements the `mbn` auto rule: forced true/false wins,
// otherwise MBN iff the layer produced more than one stream or
// stream_codecs names any stream.
func (s *Spec) useMBN(streamCount int) bool {
	if s.MBN != nil {
		return *s.MBN
	}
	return streamCount > 1 || len(s.StreamCodecs) > 0
}

// Compress runs Spec against data: encode via the chosen layer, then
// frame the result as a v6 container, either as a bare single-stream
// payload or an MBN bundle.
func Compress(data []byte, s *Spec) ([]byte, error) {
	L, ok := layer.ByName(s.Layer)
	if !ok {
		return nil, errs.NewUsageError("pipeline: unknown layer \""+s.Layer+"\"", nil)
	}
	return CompressWithLayer(L, data, s)
}

// CompressWithLayer is Compress parameterized on an already-constructed
// Layer instance instead of a registry lookup by name, so callers that
// need a layer configured with bucket-level state (e.g. the directory
// packer's tpl_lines_shared_v0 with a shared template base) can drive
// the same framing logic Compress uses.
func CompressWithLayer(L layer.Layer, data []byte, s *Spec) ([]byte, error) {
	res, err := L.Encode(data)
	if err != nil {
		return nil, err
	}

	if !s.useMBN(len(res.Streams)) {
		if len(res.Streams) != 1 {
			return nil, errs.NewUsageError("pipeline: mbn=false but layer \""+s.Layer+"\" produced multiple streams", nil)
		}
		var raw []byte
		for _, v := range res.Streams {
			raw = v
		}
		code, _ := codec.CodeByName(s.defaultCodecName())
		impl, err := codec.ByCode(code)
		if err != nil {
			return nil, err
		}
		comp, err := impl.Compress(raw)
		if err != nil {
			return nil, err
		}
		// Non-MBN single-stream payloads carry their own varint(ulen)
		// prefix ahead of the codec bytes (some codecs, e.g. huffman,
		// need the decompressed length to walk their bitstream, and v6's
		// header meta slot is reserved for the layer's own meta, e.g.
		// lines_dict's vocabulary blob).
		payload := varint.Put(nil, uint64(len(raw)))
		payload = append(payload, comp...)
		return container.Encode(L.Code(), byte(code), res.Meta, payload, false), nil
	}

	stypes := layer.StreamNamesForLayer(L.Code())
	streams := make([]mbn.Stream, 0, len(stypes)+1)
	for _, stype := range stypes {
		raw, ok := res.Streams[stype]
		if !ok {
			continue
		}
		cname := s.codecNameFor(stype)
		code, ok := codec.CodeByName(cname)
		if !ok {
			return nil, errs.NewUsageError("pipeline: unknown codec \""+cname+"\"", nil)
		}
		impl, err := codec.ByCode(code)
		if err != nil {
			return nil, err
		}
		comp, err := impl.Compress(raw)
		if err != nil {
			return nil, err
		}
		streams = append(streams, mbn.Stream{Stype: stype, Codec: byte(code), Ulen: len(raw), Comp: comp})
	}
	// Any stream the layer emitted outside the canonical list (should
	// not happen for registered layers, but keeps custom stypes alive)
	// is appended in stype order for determinism.
	extra := make([]uint8, 0)
	known := map[uint8]bool{}
	for _, t := range stypes {
		known[t] = true
	}
	for t := range res.Streams {
		if !known[t] {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, stype := range extra {
		raw := res.Streams[stype]
		cname := s.codecNameFor(stype)
		code, _ := codec.CodeByName(cname)
		impl, err := codec.ByCode(code)
		if err != nil {
			return nil, err
		}
		comp, err := impl.Compress(raw)
		if err != nil {
			return nil, err
		}
		streams = append(streams, mbn.Stream{Stype: stype, Codec: byte(code), Ulen: len(raw), Comp: comp})
	}

	if len(res.Meta) > 0 {
		cname := s.codecNameFor(mbn.StypeMeta)
		code, ok := codec.CodeByName(cname)
		if !ok {
			return nil, errs.NewUsageError("pipeline: unknown codec \""+cname+"\" for META", nil)
		}
		impl, err := codec.ByCode(code)
		if err != nil {
			return nil, err
		}
		comp, err := impl.Compress(res.Meta)
		if err != nil {
			return nil, err
		}
		streams = append(streams, mbn.Stream{Stype: mbn.StypeMeta, Codec: byte(code), Ulen: len(res.Meta), Comp: comp})
	}

	payload := mbn.Pack(streams)
	return container.Encode(L.Code(), byte(codec.MBN), nil, payload, false), nil
}
