package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// PackVocabList always emits the v2 "VB2\0" format; UnpackVocabList
// auto-detects v1 (legacy u32-BE-length framing) and v2 by magic sniff,
// so archives written before the v2 format existed still decode.
var vb2Magic = []byte("VB2\x00")

func PackVocabList(vocab [][]byte) []byte {
	out := append([]byte{}, vb2Magic...)
	out = varint.Put(out, uint64(len(vocab)))
	for _, tok := range vocab {
		out = varint.Put(out, uint64(len(tok)))
		out = append(out, tok...)
	}
	return out
}

func UnpackVocabList(blob []byte) ([][]byte, error) {
	if len(blob) >= 4 && string(blob[:4]) == string(vb2Magic) {
		rest := blob[4:]
		n, used, err := varint.Get(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[used:]
		vocab := make([][]byte, 0, n)
		for i := uint64(0); i < n; i++ {
			l, used, err := varint.Get(rest)
			if err != nil {
				return nil, err
			}
			rest = rest[used:]
			if uint64(len(rest)) < l {
				return nil, errs.NewCorruptPayload("vocab: VB2 truncated entry", nil)
			}
			vocab = append(vocab, append([]byte{}, rest[:l]...))
			rest = rest[l:]
		}
		if len(rest) != 0 {
			return nil, errs.NewCorruptPayload("vocab: VB2 trailing garbage", nil)
		}
		return vocab, nil
	}

	// v1 legacy: u32 BE count + repeated (u32 BE len, bytes)
	if len(blob) < 4 {
		return nil, errs.NewCorruptPayload("vocab: v1 too short", nil)
	}
	n := be32(blob[:4])
	idx := 4
	vocab := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		if idx+4 > len(blob) {
			return nil, errs.NewCorruptPayload("vocab: v1 truncated length", nil)
		}
		l := be32(blob[idx : idx+4])
		idx += 4
		if idx+int(l) > len(blob) {
			return nil, errs.NewCorruptPayload("vocab: v1 truncated data", nil)
		}
		vocab = append(vocab, append([]byte{}, blob[idx:idx+int(l)]...))
		idx += int(l)
	}
	if idx != len(blob) {
		return nil, errs.NewCorruptPayload("vocab: v1 trailing garbage", nil)
	}
	return vocab, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// splitLinesKeepEnds mirrors Python's bytes.splitlines(keepends=True)
// for the '\n' case used throughout the layer corpus: the file is
// split on '\n', with the newline kept on the end of each line except
// a possible final unterminated line, and no extra empty line is
// produced for a trailing '\n'.
func splitLinesKeepEnds(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	var lines [][]byte
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
