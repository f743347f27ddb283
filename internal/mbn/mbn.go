// Package mbn implements the MBN multi-stream bundle format: a
// self-describing payload carrying several independently-coded streams
// under one container payload.
package mbn

import (
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// Stream type tags (stype), stable per the data model.
const (
	StypeMain   = 0
	StypeMask   = 1
	StypeVowels = 2
	StypeCons   = 3
	StypeText   = 10
	StypeNums   = 11
	StypeTpl    = 20
	StypeIDs    = 21
	StypeMeta   = 250
)

var magic = []byte("MBN")

// maxStreams caps the declared stream count as a sanity check against
// crafted or corrupted files.
const maxStreams = 10_000

// Stream is one MBN-framed stream: the stype tag, the codec_code it was
// compressed with, the declared decompressed length, per-stream meta
// bytes (layer-supplied, opaque to MBN itself), and the compressed
// bytes.
type Stream struct {
	Stype uint8
	Codec uint8
	Ulen  int
	Meta  []byte
	Comp  []byte
}

// Pack serializes a list of streams into an MBN payload. Duplicate
// Stype values are a caller bug, not a wire condition, so Pack does not
// re-check uniqueness; Unpack enforces it on the read side per the
// spec's collision policy.
func Pack(streams []Stream) []byte {
	out := append([]byte{}, magic...)
	out = varint.Put(out, uint64(len(streams)))
	for _, s := range streams {
		out = append(out, s.Stype, s.Codec)
		out = varint.Put(out, uint64(s.Ulen))
		out = varint.Put(out, uint64(len(s.Comp)))
		out = varint.Put(out, uint64(len(s.Meta)))
		out = append(out, s.Meta...)
		out = append(out, s.Comp...)
	}
	return out
}

// Unpack parses an MBN payload, enforcing buffer-bounded varints and
// lengths, stype uniqueness, and nstreams >= 1.
func Unpack(buf []byte) ([]Stream, error) {
	if len(buf) < 3 || string(buf[:3]) != string(magic) {
		return nil, errs.NewBadMagic("mbn: bad magic")
	}
	rest := buf[3:]
	n, used, err := varint.Get(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[used:]
	if n == 0 {
		return nil, errs.NewCorruptPayload("mbn: nstreams must be >= 1", nil)
	}
	if n > maxStreams {
		return nil, errs.NewCorruptPayload("mbn: nstreams exceeds sanity cap", nil)
	}

	streams := make([]Stream, 0, n)
	seen := map[uint8]bool{}
	for i := uint64(0); i < n; i++ {
		if len(rest) < 2 {
			return nil, errs.NewCorruptPayload("mbn: truncated stream header", nil)
		}
		stype, codec := rest[0], rest[1]
		rest = rest[2:]

		ulen, u1, err := varint.Get(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[u1:]
		clen, u2, err := varint.Get(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[u2:]
		mlen, u3, err := varint.Get(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[u3:]

		if uint64(len(rest)) < mlen {
			return nil, errs.NewCorruptPayload("mbn: meta length out of bounds", nil)
		}
		meta := rest[:mlen]
		rest = rest[mlen:]

		if uint64(len(rest)) < clen {
			return nil, errs.NewCorruptPayload("mbn: comp length out of bounds", nil)
		}
		comp := rest[:clen]
		rest = rest[clen:]

		if seen[stype] {
			return nil, errs.NewCorruptPayload("mbn: duplicate stype", nil)
		}
		seen[stype] = true

		streams = append(streams, Stream{
			Stype: stype,
			Codec: codec,
			Ulen:  int(ulen),
			Meta:  append([]byte{}, meta...),
			Comp:  append([]byte{}, comp...),
		})
	}
	return streams, nil
}

// ByStype returns the first stream with the given stype, nil if absent.
func ByStype(streams []Stream, stype uint8) *Stream {
	for i := range streams {
		if streams[i].Stype == stype {
			return &streams[i]
		}
	}
	return nil
}
