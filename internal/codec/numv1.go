package codec

import (
	"crypto/sha256"
	"sort"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// NumV1Codec extends NumV0 with a top-K frequency dictionary plus an
// escape code, and an optional bucket-level shared dictionary. Mode
// selection (MODE_RAW/MODE_DICT/MODE_SHARED) tries a ladder of K
// candidates and ranks dictionary entries by
// (-freq, abs(value), value) for a deterministic tie-break.
//
// Wire format: magic "NV1", u8 mode, payload.
//   - MODE_RAW: payload = input unchanged.
//   - MODE_DICT: payload = varint(K) | K zigzag-varints (dict values) |
//     code-stream.
//   - MODE_SHARED: payload = 8-byte dict tag | code-stream.
//
// Code-stream: varint(code) per integer; code 0 is an escape followed
// by a zigzag-varint literal; code in [1..K] indexes dict[code-1].
type NumV1Codec struct {
	SharedDict []int64
	SharedTag8 [8]byte
	HasShared  bool
}

const (
	numV1ModeRaw    = 0
	numV1ModeDict   = 1
	numV1ModeShared = 2
)

var numV1Magic = []byte("NV1")
var kCandidates = []int{8, 16, 32, 64, 128}

// DictTag8 computes the stable 8-byte tag for a shared dictionary.
func DictTag8(vals []int64) [8]byte {
	raw := varint.EncodeInts(vals)
	sum := sha256.Sum256(raw)
	var tag [8]byte
	copy(tag[:], sum[:8])
	return tag
}

func encodeNumV1Codes(ints []int64, dictVals []int64) []byte {
	idx := make(map[int64]int, len(dictVals))
	for i, v := range dictVals {
		idx[v] = i
	}
	var codes []byte
	for _, n := range ints {
		if j, ok := idx[n]; ok {
			codes = varint.Put(codes, uint64(j+1))
		} else {
			codes = varint.Put(codes, 0)
			codes = varint.Put(codes, varint.Zigzag(n))
		}
	}
	return codes
}

func decodeNumV1Codes(codes []byte, dictVals []int64) ([]int64, error) {
	var out []int64
	for len(codes) > 0 {
		code, n, err := varint.Get(codes)
		if err != nil {
			return nil, err
		}
		codes = codes[n:]
		if code == 0 {
			z, n2, err := varint.Get(codes)
			if err != nil {
				return nil, err
			}
			codes = codes[n2:]
			out = append(out, varint.Unzigzag(z))
			continue
		}
		j := int(code) - 1
		if j < 0 || j >= len(dictVals) {
			return nil, errs.NewCorruptPayload("num_v1: dict code out of range", nil)
		}
		out = append(out, dictVals[j])
	}
	return out, nil
}

func (c NumV1Codec) Compress(data []byte) ([]byte, error) {
	best := append(append([]byte{}, numV1Magic...), byte(numV1ModeRaw))
	best = append(best, data...)

	ints, err := varint.DecodeInts(data)
	if err != nil {
		return nil, err
	}
	if len(ints) < 8 {
		return best, nil
	}

	if c.HasShared {
		codes := encodeNumV1Codes(ints, c.SharedDict)
		cand := append(append([]byte{}, numV1Magic...), byte(numV1ModeShared))
		cand = append(cand, c.SharedTag8[:]...)
		cand = append(cand, codes...)
		if len(cand) < len(best) {
			best = cand
		}
	}

	freq := map[int64]int{}
	for _, n := range ints {
		freq[n]++
	}
	if len(freq) < 4 {
		return best, nil
	}
	unique := make([]int64, 0, len(freq))
	for v := range freq {
		unique = append(unique, v)
	}
	sort.Slice(unique, func(i, j int) bool {
		fi, fj := freq[unique[i]], freq[unique[j]]
		if fi != fj {
			return fi > fj
		}
		ai, aj := abs64(unique[i]), abs64(unique[j])
		if ai != aj {
			return ai < aj
		}
		return unique[i] < unique[j]
	})

	for _, k := range kCandidates {
		dictVals := unique
		if k < len(unique) {
			dictVals = unique[:k]
		}
		if len(dictVals) < 4 {
			continue
		}
		codes := encodeNumV1Codes(ints, dictVals)
		cand := append(append([]byte{}, numV1Magic...), byte(numV1ModeDict))
		cand = varint.Put(cand, uint64(len(dictVals)))
		cand = append(cand, varint.EncodeInts(dictVals)...)
		cand = append(cand, codes...)
		if len(cand) < len(best) {
			best = cand
		}
	}
	return best, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (c NumV1Codec) Decompress(data []byte, ulen int) ([]byte, error) {
	if len(data) < 4 || string(data[:3]) != string(numV1Magic) {
		return nil, errs.NewBadMagic("num_v1: bad magic")
	}
	mode := data[3]
	payload := data[4:]
	var out []byte
	switch mode {
	case numV1ModeRaw:
		out = append([]byte{}, payload...)
	case numV1ModeDict:
		k, n, err := varint.Get(payload)
		if err != nil {
			return nil, err
		}
		payload = payload[n:]
		dictVals := make([]int64, 0, k)
		for i := uint64(0); i < k; i++ {
			z, n, err := varint.Get(payload)
			if err != nil {
				return nil, err
			}
			payload = payload[n:]
			dictVals = append(dictVals, varint.Unzigzag(z))
		}
		ints, err := decodeNumV1Codes(payload, dictVals)
		if err != nil {
			return nil, err
		}
		out = varint.EncodeInts(ints)
	case numV1ModeShared:
		if len(payload) < 8 {
			return nil, errs.NewCorruptPayload("num_v1: truncated shared tag", nil)
		}
		var tag [8]byte
		copy(tag[:], payload[:8])
		if !c.HasShared || tag != c.SharedTag8 {
			return nil, errs.NewMissingResource("num_v1: shared dictionary tag mismatch or absent", nil)
		}
		ints, err := decodeNumV1Codes(payload[8:], c.SharedDict)
		if err != nil {
			return nil, err
		}
		out = varint.EncodeInts(ints)
	default:
		return nil, errs.NewCorruptPayload("num_v1: unknown mode", nil)
	}
	if len(out) != ulen {
		return nil, errs.NewCorruptPayload("num_v1: length mismatch after decompression", nil)
	}
	return out, nil
}
