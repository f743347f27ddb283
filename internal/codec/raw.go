package codec

import "github.com/gcomneno/onion-compressor-framework/internal/errs"

// RawCodec is the identity codec: decode must still length-check.
type RawCodec struct{}

func (RawCodec) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (RawCodec) Decompress(data []byte, ulen int) ([]byte, error) {
	if len(data) != ulen {
		return nil, errs.NewCorruptPayload("raw: length mismatch", nil)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
