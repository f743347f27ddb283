package codec

import (
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// NumV0Codec compresses a NUMS stream (the zigzag-varint-per-int
// representation produced by varint.EncodeInts) by optionally delta
// coding the integer sequence first, keeping whichever of the two
// candidates is smaller.
//
// Wire format: magic "NV0", u8 mode, payload. MODE_RAW payload is the
// input unchanged; MODE_DELTA payload is the zigzag-varint encoding of
// the successive differences (first element kept absolute).
type NumV0Codec struct{}

const (
	numModeRaw   = 0
	numModeDelta = 1
)

var numV0Magic = []byte("NV0")

func (NumV0Codec) Compress(data []byte) ([]byte, error) {
	ints, err := varint.DecodeInts(data)
	if err != nil {
		return nil, err
	}
	best := append(append([]byte{}, numV0Magic...), byte(numModeRaw))
	best = append(best, data...)

	if len(ints) > 1 {
		deltas := deltaEncode(ints)
		rawDelta := varint.EncodeInts(deltas)
		cand := append(append([]byte{}, numV0Magic...), byte(numModeDelta))
		cand = append(cand, rawDelta...)
		if len(cand) < len(best) {
			best = cand
		}
	}
	return best, nil
}

func (NumV0Codec) Decompress(data []byte, ulen int) ([]byte, error) {
	out, err := decodeNumV0Blob(data)
	if err != nil {
		return nil, err
	}
	if len(out) != ulen {
		return nil, errs.NewCorruptPayload("num_v0: length mismatch after decompression", nil)
	}
	return out, nil
}

func decodeNumV0Blob(blob []byte) ([]byte, error) {
	if len(blob) < 4 || string(blob[:3]) != string(numV0Magic) {
		return nil, errs.NewBadMagic("num_v0: bad magic")
	}
	mode := blob[3]
	payload := blob[4:]
	switch mode {
	case numModeRaw:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case numModeDelta:
		deltas, err := varint.DecodeInts(payload)
		if err != nil {
			return nil, err
		}
		return varint.EncodeInts(deltaDecode(deltas)), nil
	default:
		return nil, errs.NewCorruptPayload("num_v0: unknown mode", nil)
	}
}

func deltaEncode(ints []int64) []int64 {
	out := make([]int64, len(ints))
	out[0] = ints[0]
	for i := 1; i < len(ints); i++ {
		out[i] = ints[i] - ints[i-1]
	}
	return out
}

func deltaDecode(deltas []int64) []int64 {
	if len(deltas) == 0 {
		return nil
	}
	out := make([]int64, len(deltas))
	out[0] = deltas[0]
	for i := 1; i < len(deltas); i++ {
		out[i] = out[i-1] + deltas[i]
	}
	return out
}
