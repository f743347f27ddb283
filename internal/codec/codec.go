// Package codec implements the byte-to-byte compressors named in the
// data model: raw, zlib, zstd, zstd_tight, huffman, num_v0, num_v1.
// Every codec shares one contract: Compress(bytes) -> bytes,
// Decompress(bytes, ulen) -> bytes, with ulen validated on decode.
package codec

import "github.com/gcomneno/onion-compressor-framework/internal/errs"

// Code is the stable numeric codec_code from the data model.
type Code uint8

const (
	Huffman   Code = 0
	Zstd      Code = 1
	ZstdTight Code = 2
	Raw       Code = 3
	MBN       Code = 4
	NumV0     Code = 5
	Zlib      Code = 6
	NumV1     Code = 7
)

// Name returns the registered identifier for a codec code, empty if
// the code is unknown.
func (c Code) Name() string {
	if n, ok := names[c]; ok {
		return n
	}
	return ""
}

var names = map[Code]string{
	Huffman:   "huffman",
	Zstd:      "zstd",
	ZstdTight: "zstd_tight",
	Raw:       "raw",
	MBN:       "mbn",
	NumV0:     "num_v0",
	Zlib:      "zlib",
	NumV1:     "num_v1",
}

// CodeByName maps an identifier back to its numeric code.
func CodeByName(name string) (Code, bool) {
	for c, n := range names {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Codec compresses and decompresses one byte stream. MBN is deliberately
// not a Codec: it is a container for other codecs' output, assembled by
// package mbn instead.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, ulen int) ([]byte, error)
}

// ByCode returns the codec implementation for a numeric codec_code.
// MBN is excluded; callers dispatch to package mbn explicitly.
func ByCode(c Code) (Codec, error) {
	switch c {
	case Huffman:
		return Huffman_, nil
	case Zstd:
		return ZstdCodec{Tight: false}, nil
	case ZstdTight:
		return ZstdCodec{Tight: true}, nil
	case Raw:
		return RawCodec{}, nil
	case NumV0:
		return NumV0Codec{}, nil
	case Zlib:
		return ZlibCodec{Level: 6}, nil
	case NumV1:
		return NumV1Codec{}, nil
	default:
		return nil, errs.NewCorruptPayload("codec: unknown codec code", nil)
	}
}

// Huffman_ is the package-level canonical Huffman codec instance (named
// with a trailing underscore to avoid colliding with the Huffman code
// constant).
var Huffman_ = HuffmanCodec{}
