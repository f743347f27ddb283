// Package gca implements the GCA1 bucket archive: a thin append-only
// wrapper that concatenates already self-contained compressed blobs
// (container v6 bytes, typically carrying MBN payloads) and trails them
// with a zlib-compressed JSONL index plus a fixed 16-byte trailer.
package gca

import (
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

const (
	Magic      = "GCA1"
	TrailerLen = 16

	indexSchema = "gca.index_trailer.v1"

	// ResourcePrefix namespaces bucket-level shared resources (e.g. a
	// tpl_dict_v0 or num_dict_v1 blob) inside the entry rel-path space.
	ResourcePrefix = "__res__/"
)

// Entry is one archive member: a named blob plus arbitrary JSON-ish
// metadata carried through the index line.
type Entry struct {
	Rel    string         `json:"rel"`
	Offset uint64         `json:"offset"`
	Length uint64         `json:"length"`
	Meta   map[string]any `json:"-"`
}

// Trailer is the parsed final JSONL line.
type Trailer struct {
	Kind            string `json:"kind"`
	Schema          string `json:"schema"`
	IndexBodySHA256 string `json:"index_body_sha256"`
	Entries         int    `json:"entries"`
}

func crc32Of(data []byte) uint32 { return crc32.ChecksumIEEE(data) }

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hexEncode(sum[:])
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0xf]
	}
	return string(out)
}

func putUint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func putUint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func badTrailer(msg string) error {
	return errs.NewCorruptPayload("gca: "+msg, nil)
}
