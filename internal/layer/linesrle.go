package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// LinesRLELayer is LinesDictLayer with the id stream run-length encoded
// as (id, run) varint pairs, and n_lines carried in meta for a strict
// round-trip check.
type LinesRLELayer struct{}

func (LinesRLELayer) Code() container.LayerCode { return container.LayerLinesRLE }

func (LinesRLELayer) Encode(data []byte) (Result, error) {
	lines := splitLinesKeepEnds(data)
	vocab := make([][]byte, 0)
	index := make(map[string]int)
	ids := make([]uint64, 0, len(lines))
	for _, ln := range lines {
		key := string(ln)
		j, ok := index[key]
		if !ok {
			j = len(vocab)
			vocab = append(vocab, ln)
			index[key] = j
		}
		ids = append(ids, uint64(j))
	}

	var rle []byte
	if len(ids) > 0 {
		cur, run := ids[0], uint64(1)
		for _, v := range ids[1:] {
			if v == cur {
				run++
				continue
			}
			rle = varint.Put(rle, cur)
			rle = varint.Put(rle, run)
			cur, run = v, 1
		}
		rle = varint.Put(rle, cur)
		rle = varint.Put(rle, run)
	}

	meta := varint.Put(nil, uint64(len(lines)))
	meta = append(meta, PackVocabList(vocab)...)

	return Result{
		Streams: map[uint8][]byte{mbn.StypeMain: rle},
		Meta:    meta,
	}, nil
}

func (LinesRLELayer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	nLines, used, err := varint.Get(meta)
	if err != nil {
		return nil, err
	}
	vocab, err := UnpackVocabList(meta[used:])
	if err != nil {
		return nil, err
	}
	main := streams[mbn.StypeMain]

	var out []byte
	var total uint64
	for len(main) > 0 {
		vid, n1, err := varint.Get(main)
		if err != nil {
			return nil, err
		}
		main = main[n1:]
		run, n2, err := varint.Get(main)
		if err != nil {
			return nil, err
		}
		main = main[n2:]
		if vid >= uint64(len(vocab)) {
			return nil, errs.NewCorruptPayload("lines_rle: id out of range", nil)
		}
		if run == 0 {
			return nil, errs.NewCorruptPayload("lines_rle: zero run", nil)
		}
		for i := uint64(0); i < run; i++ {
			out = append(out, vocab[vid]...)
		}
		total += run
	}
	if total != nLines {
		return nil, errs.NewCorruptPayload("lines_rle: n_lines mismatch", nil)
	}
	return out, nil
}
