package codec

import (
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

// ZstdCodec wraps klauspost/compress/zstd. Tight drops the frame
// checksum to save a few bytes per frame; the content-size field is
// still written in both modes.
type ZstdCodec struct {
	Tight bool
}

func (c ZstdCodec) Compress(data []byte) ([]byte, error) {
	opts := []zstd.EOption{}
	if c.Tight {
		opts = append(opts, zstd.WithEncoderCRC(false))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "zstd: open encoder")
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (ZstdCodec) Decompress(data []byte, ulen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd: open decoder")
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, make([]byte, 0, ulen))
	if err != nil {
		return nil, errs.NewCorruptPayload("zstd: decode failed", err)
	}
	if len(out) != ulen {
		return nil, errs.NewCorruptPayload("zstd: length mismatch after decompression", nil)
	}
	return out, nil
}
