package dirpack

import (
	"github.com/gcomneno/onion-compressor-framework/internal/codec"
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/layer"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/pipeline"
)

// compressFile runs plan against one file's bytes, routing through the
// resource-aware paths (a configured tpl_lines_shared_v0 base, or a
// num_v1 shared dictionary) when the bucket built one, and the plain
// pipeline engine otherwise.
func compressFile(data []byte, plan PlanSpec, rb resourceBundle) ([]byte, error) {
	spec := &pipeline.Spec{SpecName: pipeline.SpecSchema, Layer: plan.Layer, Codec: plan.Codec, StreamCodecs: plan.StreamCodecs}

	switch {
	case plan.Layer == "tpl_lines_shared_v0" && rb.hasTplBase:
		L := layer.TplLinesSharedV0Layer{SharedBase: rb.tplBase, BaseTag8: rb.tplBaseTag}
		return pipeline.CompressWithLayer(L, data, spec)
	case plan.Layer == "split_text_nums" && rb.hasNumDict && streamCodecFor(plan, "NUMS") == "num_v1":
		return compressSplitTextNumsShared(data, plan, rb)
	default:
		return pipeline.Compress(data, spec)
	}
}

// compressSplitTextNumsShared builds the split_text_nums MBN bundle by
// hand so the NUMS stream is compressed against the bucket's shared
// num_v1 dictionary instead of a fresh per-file one.
func compressSplitTextNumsShared(data []byte, plan PlanSpec, rb resourceBundle) ([]byte, error) {
	L := layer.SplitTextNumsLayer{}
	res, err := L.Encode(data)
	if err != nil {
		return nil, err
	}
	textRaw := res.Streams[mbn.StypeText]
	numsRaw := res.Streams[mbn.StypeNums]

	textCodecName := streamCodecFor(plan, "TEXT")
	textCode, ok := codec.CodeByName(textCodecName)
	if !ok {
		return nil, errs.NewUsageError("dirpack: unknown TEXT codec \""+textCodecName+"\"", nil)
	}
	textImpl, err := codec.ByCode(textCode)
	if err != nil {
		return nil, err
	}
	textComp, err := textImpl.Compress(textRaw)
	if err != nil {
		return nil, err
	}

	numsImpl := codec.NumV1Codec{SharedDict: rb.numDict, SharedTag8: rb.numDictTag, HasShared: true}
	numsComp, err := numsImpl.Compress(numsRaw)
	if err != nil {
		return nil, err
	}

	streams := []mbn.Stream{
		{Stype: mbn.StypeText, Codec: byte(textCode), Ulen: len(textRaw), Comp: textComp},
		{Stype: mbn.StypeNums, Codec: byte(codec.NumV1), Ulen: len(numsRaw), Comp: numsComp},
	}
	payload := mbn.Pack(streams)
	return container.Encode(L.Code(), byte(codec.MBN), nil, payload, false), nil
}

// decompressFile is compressFile's inverse for classic-mode unpack: it
// resolves the layer with any bucket-level shared resources already
// loaded, then hands off to the universal decoder's assembly logic via
// the same layer instance.
func decompressFile(blob []byte, plan PlanSpec, rb resourceBundle) ([]byte, error) {
	hdr, err := container.Decode(blob)
	if err != nil {
		return nil, err
	}

	var L layer.Layer
	switch {
	case plan.Layer == "tpl_lines_shared_v0" && rb.hasTplBase:
		L = layer.TplLinesSharedV0Layer{SharedBase: rb.tplBase, BaseTag8: rb.tplBaseTag}
	default:
		var ok bool
		L, ok = layer.ByCode(hdr.Layer)
		if !ok {
			return nil, errs.NewCorruptPayload("dirpack: unknown layer_code", nil)
		}
	}

	if codec.Code(hdr.Codec) != codec.MBN {
		names := layer.StreamNamesForLayer(hdr.Layer)
		stype := uint8(mbn.StypeMain)
		if len(names) > 0 {
			stype = names[0]
		}
		ulen, n, err := readVarintPrefix(hdr.Payload)
		if err != nil {
			return nil, err
		}
		impl, err := codec.ByCode(codec.Code(hdr.Codec))
		if err != nil {
			return nil, err
		}
		raw, err := impl.Decompress(hdr.Payload[n:], ulen)
		if err != nil {
			return nil, err
		}
		return L.Decode(map[uint8][]byte{stype: raw}, hdr.Meta)
	}

	streams, err := mbn.Unpack(hdr.Payload)
	if err != nil {
		return nil, err
	}
	streamMap := make(map[uint8][]byte, len(streams))
	var meta []byte
	for _, s := range streams {
		var raw []byte
		if plan.Layer == "split_text_nums" && s.Stype == mbn.StypeNums && rb.hasNumDict {
			impl := codec.NumV1Codec{SharedDict: rb.numDict, SharedTag8: rb.numDictTag, HasShared: true}
			raw, err = impl.Decompress(s.Comp, s.Ulen)
		} else {
			var impl codec.Codec
			impl, err = codec.ByCode(codec.Code(s.Codec))
			if err == nil {
				raw, err = impl.Decompress(s.Comp, s.Ulen)
			}
		}
		if err != nil {
			return nil, err
		}
		if s.Stype == mbn.StypeMeta {
			meta = raw
			continue
		}
		streamMap[s.Stype] = raw
	}
	return L.Decode(streamMap, meta)
}
