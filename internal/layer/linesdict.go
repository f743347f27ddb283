package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// LinesDictLayer splits input into newline-preserving lines, dedupes
// into a vocabulary, and emits a per-line vocabulary-index stream.
type LinesDictLayer struct{}

func (LinesDictLayer) Code() container.LayerCode { return container.LayerLinesDict }

func (LinesDictLayer) Encode(data []byte) (Result, error) {
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
	return Result{
		Streams: map[uint8][]byte{mbn.StypeMain: varint.EncodeUints(ids)},
		Meta:    PackVocabList(vocab),
	}, nil
}

func (LinesDictLayer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	vocab, err := UnpackVocabList(meta)
	if err != nil {
		return nil, err
	}
	main, ok := streams[mbn.StypeMain]
	if !ok {
		return nil, errs.NewCorruptPayload("lines_dict: missing MAIN stream", nil)
	}
	ids, err := varint.DecodeUints(main)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, id := range ids {
		if id >= uint64(len(vocab)) {
			return nil, errs.NewCorruptPayload("lines_dict: id out of range", nil)
		}
		out = append(out, vocab[id]...)
	}
	return out, nil
}
