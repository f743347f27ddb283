// Package varint implements the unsigned LEB128 varint and zigzag
// encodings shared by the MBN bundle, the v6 container header, and the
// numeric codecs.
package varint

import (
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

// MaxMagnitude caps the value a varint may decode to. Varints are
// unbounded by the wire format; crafted files can otherwise force
// pathological allocations. 2^40 is ample for any length this repo
// ever frames.
const MaxMagnitude = 1 << 40

// Put appends the LEB128 encoding of v to dst and returns the result.
func Put(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Get decodes a varint starting at buf[0], returning the value and the
// number of bytes consumed. It fails closed: a varint that runs past
// the end of buf, or one that would decode beyond MaxMagnitude, is
// CorruptPayload rather than silently truncated or wrapped.
func Get(buf []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if shift > 63 {
			return 0, 0, errs.NewCorruptPayload("varint: too many continuation bytes", nil)
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			if v > MaxMagnitude {
				return 0, 0, errs.NewCorruptPayload("varint: magnitude exceeds cap", nil)
			}
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errs.NewCorruptPayload("varint: truncated", nil)
}

// Zigzag maps a signed integer onto an unsigned one so small negative
// and small positive values both encode compactly.
func Zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// Unzigzag reverses Zigzag.
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// EncodeInts concatenates zigzag-varint encodings of vs with no framing,
// used by the plain num_v0/num_v1 integer streams.
func EncodeInts(vs []int64) []byte {
	out := make([]byte, 0, len(vs)*2)
	for _, v := range vs {
		out = Put(out, Zigzag(v))
	}
	return out
}

// DecodeInts reverses EncodeInts, consuming the entire buffer as a
// concatenation of varints.
func DecodeInts(buf []byte) ([]int64, error) {
	var out []int64
	for len(buf) > 0 {
		u, n, err := Get(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, Unzigzag(u))
		buf = buf[n:]
	}
	return out, nil
}

// EncodeUints concatenates plain (non-zigzag) varint encodings, used
// for length fields and other non-negative sequences.
func EncodeUints(vs []uint64) []byte {
	out := make([]byte, 0, len(vs)*2)
	for _, v := range vs {
		out = Put(out, v)
	}
	return out
}

// DecodeUints reverses EncodeUints.
func DecodeUints(buf []byte) ([]uint64, error) {
	var out []uint64
	for len(buf) > 0 {
		u, n, err := Get(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
		buf = buf[n:]
	}
	return out, nil
}
