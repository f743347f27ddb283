package container

import (
	"encoding/binary"

	"github.com/gcomneno/onion-compressor-framework/internal/codec"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// Legacy v1-v5 read-only support: v5 used string-named layer/codec
// fields instead of the numeric codes v6 uses, and v1-v4 (plus early
// v5 files) wrapped a bare Huffman payload with no "GCC" magic at all.
// The current writer never emits either; DecodeAny exists purely so
// old archives keep reading.

const versionLegacyV5 = 5

// legacy Huffman payload kinds.
const (
	kindBytes           = 0
	kindIDSMetaVocab     = 1
	kindIDSInlineVocab   = 2
)

// DecodeAny dispatches on the version byte: v6 containers decode via
// Decode, v5 via the string-named legacy container, and v1-v4 (no
// outer container framing, just a bare KIND_BYTES Huffman payload as
// used by the earliest writer) are accepted directly on the magic-less
// byte stream. Returns the decoded plaintext (undecoded MBN bundle
// bytes when codec_code is mbn; callers that need stream-level
// reconstruction, e.g. package decode, unpack it themselves), the
// resolved layer/codec identifiers, and, for v6, the header's raw meta
// slot (nil for every legacy path, which has no equivalent field).
func DecodeAny(buf []byte) (data []byte, layerName, codecName string, meta []byte, err error) {
	if len(buf) >= 4 && string(buf[:3]) == "GCC" {
		switch buf[3] {
		case version6:
			hdr, err := Decode(buf)
			if err != nil {
				return nil, "", "", nil, err
			}
			data, err = decodeV6Payload(hdr)
			if err != nil {
				return nil, "", "", nil, err
			}
			return data, hdr.Layer.Name(), codec.Code(hdr.Codec).Name(), hdr.Meta, nil
		case versionLegacyV5:
			data, layerName, codecName, err = decodeLegacyV5(buf)
			return data, layerName, codecName, nil, err
		default:
			return nil, "", "", nil, errs.NewUnsupportedVersion("container: version outside 1..6", nil)
		}
	}
	// No "GCC" magic at all: treat as a bare legacy v1-v4 Huffman
	// payload (KIND_BYTES), the format the earliest writer emitted with
	// no outer framing at all.
	freq, lastbits, bitstream, n, err := unpackHuffmanPayloadBytes(buf)
	if err != nil {
		return nil, "", "", nil, err
	}
	plain, err := decodeLegacyHuffman(freq, bitstream, n, lastbits)
	if err != nil {
		return nil, "", "", nil, err
	}
	return plain, "bytes", "huffman", nil, nil
}

// decodeV6Payload turns a decoded v6 header's payload into plaintext by
// dispatching on codec_code; callers above the container package that
// need layer-aware reconstruction (vc0, split_text_nums, ...) use
// package layer on top of this. The pipeline engine's non-MBN single
// stream framing (package pipeline's Compress) prefixes the codec
// bytes with varint(ulen), so this is where that prefix is consumed.
func decodeV6Payload(hdr *Header) ([]byte, error) {
	c := codec.Code(hdr.Codec)
	if c == codec.MBN {
		// The payload is itself an MBN bundle; leave it for callers
		// that understand stream assembly (package layer) to unpack.
		return hdr.Payload, nil
	}
	ulen, n, err := varint.Get(hdr.Payload)
	if err != nil {
		return nil, err
	}
	impl, err := codec.ByCode(c)
	if err != nil {
		return nil, err
	}
	return impl.Decompress(hdr.Payload[n:], int(ulen))
}

func decodeLegacyV5(buf []byte) ([]byte, string, string, error) {
	if len(buf) < 3+1+1+1+4+4 {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated header", nil)
	}
	idx := 4 // magic(3) + version(1)
	layerLen := int(buf[idx])
	idx++
	if idx+layerLen > len(buf) {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated layer id", nil)
	}
	layerID := string(buf[idx : idx+layerLen])
	idx += layerLen

	if idx >= len(buf) {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated codec id", nil)
	}
	codecLen := int(buf[idx])
	idx++
	if idx+codecLen > len(buf) {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated codec id", nil)
	}
	codecID := string(buf[idx : idx+codecLen])
	idx += codecLen

	if idx+4 > len(buf) {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated meta length", nil)
	}
	metaLen := int(binary.BigEndian.Uint32(buf[idx : idx+4]))
	idx += 4
	if idx+metaLen > len(buf) {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated meta", nil)
	}
	idx += metaLen // meta content (JSON) not needed by the plain payload path

	if idx+4 > len(buf) {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated payload length", nil)
	}
	payloadLen := int(binary.BigEndian.Uint32(buf[idx : idx+4]))
	idx += 4
	if idx+payloadLen > len(buf) {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: truncated payload", nil)
	}
	payload := buf[idx : idx+payloadLen]

	c, ok := codec.CodeByName(codecID)
	if !ok {
		return nil, "", "", errs.NewCorruptPayload("legacy v5: unknown codec id", nil)
	}
	impl, err := codec.ByCode(c)
	if err != nil {
		return nil, "", "", err
	}
	plain, err := impl.Decompress(payload, len(payload))
	if err != nil {
		return nil, "", "", err
	}
	return plain, layerID, codecID, nil
}

func unpackHuffmanPayloadBytes(payload []byte) (freq [256]int, lastbits int, bitstream []byte, n int, err error) {
	if len(payload) < 1+4+1 {
		return freq, 0, nil, 0, errs.NewCorruptPayload("legacy huffman(bytes): too short", nil)
	}
	idx := 0
	kind := payload[idx]
	idx++
	if kind != kindBytes {
		return freq, 0, nil, 0, errs.NewCorruptPayload("legacy huffman(bytes): unexpected kind", nil)
	}
	used := int(binary.BigEndian.Uint32(payload[idx : idx+4]))
	idx += 4
	total := 0
	for i := 0; i < used; i++ {
		if idx+1+4 > len(payload) {
			return freq, 0, nil, 0, errs.NewCorruptPayload("legacy huffman(bytes): truncated freq entries", nil)
		}
		sym := payload[idx]
		idx++
		f := int(binary.BigEndian.Uint32(payload[idx : idx+4]))
		idx += 4
		freq[sym] = f
		total += f
	}
	if idx >= len(payload) {
		return freq, 0, nil, 0, errs.NewCorruptPayload("legacy huffman(bytes): truncated lastbits", nil)
	}
	lastbits = int(payload[idx])
	idx++
	bitstream = payload[idx:]
	return freq, lastbits, bitstream, total, nil
}

// decodeLegacyHuffman reuses the same Huffman tree walk as the
// modern huffman codec, parameterized directly on a freq table instead
// of the self-contained HUF1 blob.
func decodeLegacyHuffman(freq [256]int, bitstream []byte, n, lastbits int) ([]byte, error) {
	return codec.DecodeHuffmanRaw(freq, bitstream, n, lastbits)
}
