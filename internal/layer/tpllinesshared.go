package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

const flagEmpty = 0x01

// TplLinesSharedV0Layer extends TplLinesV0Layer with an optional
// bucket-level shared base template dictionary (a GCA1 resource keyed
// tpl_dict_v0): templates already present in the base are referenced
// by id rather than repeated in TPL.
type TplLinesSharedV0Layer struct {
	SharedBase [][][]byte
	BaseTag8   [8]byte
}

func (TplLinesSharedV0Layer) Code() container.LayerCode {
	return container.LayerTplLinesSharedV0
}

func (l TplLinesSharedV0Layer) Encode(data []byte) (Result, error) {
	v0 := TplLinesV0Layer{}
	res, err := v0.Encode(data)
	if err != nil {
		return Result{}, err
	}
	tplRawFull := res.Streams[mbn.StypeTpl]
	idsRawFull := res.Streams[mbn.StypeIDs]
	numsRaw := res.Streams[mbn.StypeNums]
	empty := len(data) == 0

	if empty {
		meta := []byte{fmtVersion, tokRules, flagEmpty}
		meta = varint.Put(meta, 0)
		return Result{Streams: map[uint8][]byte{
			mbn.StypeTpl:  tplRawFull,
			mbn.StypeIDs:  idsRawFull,
			mbn.StypeNums: numsRaw,
		}, Meta: meta}, nil
	}

	if len(l.SharedBase) == 0 {
		meta := []byte{fmtVersion, tokRules, 0}
		meta = varint.Put(meta, 0)
		return Result{Streams: map[uint8][]byte{
			mbn.StypeTpl:  tplRawFull,
			mbn.StypeIDs:  idsRawFull,
			mbn.StypeNums: numsRaw,
		}, Meta: meta}, nil
	}

	fullTemplates, err := UnpackTemplates(tplRawFull)
	if err != nil {
		return Result{}, err
	}
	baseIndex := map[string]int{}
	for i, t := range l.SharedBase {
		baseIndex[joinChunksKey(t)] = i
	}

	var delta [][][]byte
	deltaIndex := map[string]int{}
	tidMap := make(map[int]int, len(fullTemplates))
	for tid, tpl := range fullTemplates {
		key := joinChunksKey(tpl)
		if bi, ok := baseIndex[key]; ok {
			tidMap[tid] = bi
			continue
		}
		di, ok := deltaIndex[key]
		if !ok {
			di = len(delta)
			deltaIndex[key] = di
			delta = append(delta, tpl)
		}
		tidMap[tid] = len(l.SharedBase) + di
	}

	ids, err := varint.DecodeInts(idsRawFull)
	if err != nil {
		return Result{}, err
	}
	ids2 := make([]int64, len(ids))
	for i, x := range ids {
		ids2[i] = int64(tidMap[int(x)])
	}

	meta := []byte{fmtVersion, tokRules, 0}
	meta = varint.Put(meta, uint64(len(l.SharedBase)))
	meta = append(meta, l.BaseTag8[:]...)

	return Result{Streams: map[uint8][]byte{
		mbn.StypeTpl:  PackTemplates(delta),
		mbn.StypeIDs:  varint.EncodeInts(ids2),
		mbn.StypeNums: numsRaw,
	}, Meta: meta}, nil
}

func (l TplLinesSharedV0Layer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	if len(meta) < 3 {
		return nil, errs.NewCorruptPayload("tpl_lines_shared_v0: meta too short", nil)
	}
	if meta[0] != fmtVersion {
		return nil, errs.NewCorruptPayload("tpl_lines_shared_v0: unsupported fmt", nil)
	}
	rest := meta[3:]
	baseN, used, err := varint.Get(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[used:]

	var base [][][]byte
	if baseN > 0 {
		if len(rest) < 8 {
			return nil, errs.NewCorruptPayload("tpl_lines_shared_v0: meta truncated (tag8)", nil)
		}
		var tag [8]byte
		copy(tag[:], rest[:8])
		if uint64(len(l.SharedBase)) != baseN || tag != l.BaseTag8 {
			return nil, errs.NewMissingResource("tpl_lines_shared_v0: base dict not configured or tag mismatch", nil)
		}
		base = l.SharedBase
	}
	return decodeTplLines(streams, meta[:2], base)
}
