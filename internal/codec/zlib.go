package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

// ZlibCodec wraps klauspost/compress/zlib rather than the stdlib
// implementation, consistent with using the same module's zstd writer
// elsewhere in this package.
type ZlibCodec struct {
	Level int
}

func (c ZlibCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	level := c.Level
	if level == 0 {
		level = zlib.DefaultCompression
	}
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "zlib: open writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "zlib: write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "zlib: close")
	}
	return buf.Bytes(), nil
}

func (ZlibCodec) Decompress(data []byte, ulen int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.NewCorruptPayload("zlib: bad stream", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.NewCorruptPayload("zlib: inflate failed", err)
	}
	if len(out) != ulen {
		return nil, errs.NewCorruptPayload("zlib: length mismatch after decompression", nil)
	}
	return out, nil
}
