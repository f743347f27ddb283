package gca

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Reader provides random access to a GCA1 archive backed by an
// io.ReaderAt (typically an *os.File).
type Reader struct {
	r    io.ReaderAt
	size int64

	index     []map[string]any
	indexRaw  []byte
	loadedIdx bool
}

// NewReader wraps ra, whose total extent is size bytes.
func NewReader(ra io.ReaderAt, size int64) *Reader {
	return &Reader{r: ra, size: size}
}

func (gr *Reader) readAt(off, n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := gr.r.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && int64(read) == n) {
		return nil, errors.Wrap(err, "gca: read failed")
	}
	if int64(read) != n {
		return nil, badTrailer("blob truncated")
	}
	return buf, nil
}

func (gr *Reader) loadIndex() error {
	if gr.loadedIdx {
		return nil
	}
	if gr.size < TrailerLen {
		return badTrailer("file too short")
	}
	trailer, err := gr.readAt(gr.size-TrailerLen, TrailerLen)
	if err != nil {
		return err
	}
	if string(trailer[:4]) != Magic {
		return badTrailer("invalid magic")
	}
	idxLen := int64(binary.LittleEndian.Uint64(trailer[4:12]))
	idxCRC := binary.LittleEndian.Uint32(trailer[12:16])
	if idxLen <= 0 || idxLen > gr.size-TrailerLen {
		return badTrailer("invalid index_len")
	}
	idxOff := gr.size - TrailerLen - idxLen
	idxZ, err := gr.readAt(idxOff, idxLen)
	if err != nil {
		return err
	}
	if crc32.ChecksumIEEE(idxZ) != idxCRC {
		return badTrailer("index CRC mismatch")
	}
	idxRaw, err := zlibDecompress(idxZ)
	if err != nil {
		return badTrailer("index zlib decompress failed")
	}
	gr.indexRaw = idxRaw

	var out []map[string]any
	for _, line := range bytes.Split(idxRaw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			return badTrailer("invalid index JSONL line")
		}
		out = append(out, m)
	}
	gr.index = out
	gr.loadedIdx = true
	return nil
}

// IndexRaw returns the decompressed JSONL index bytes.
func (gr *Reader) IndexRaw() ([]byte, error) {
	if err := gr.loadIndex(); err != nil {
		return nil, err
	}
	return gr.indexRaw, nil
}

// IndexTrailer returns the parsed trailer record, the last JSONL line.
func (gr *Reader) IndexTrailer() (*Trailer, error) {
	if err := gr.loadIndex(); err != nil {
		return nil, err
	}
	if len(gr.index) == 0 {
		return nil, nil
	}
	last := gr.index[len(gr.index)-1]
	if kind, _ := last["kind"].(string); kind != "trailer" {
		return nil, nil
	}
	t := &Trailer{}
	if v, ok := last["kind"].(string); ok {
		t.Kind = v
	}
	if v, ok := last["schema"].(string); ok {
		t.Schema = v
	}
	if v, ok := last["index_body_sha256"].(string); ok {
		t.IndexBodySHA256 = v
	}
	if v, ok := last["entries"].(float64); ok {
		t.Entries = int(v)
	}
	return t, nil
}

// IterIndex returns the raw entry rows (including the trailing trailer
// record) as parsed JSON objects.
func (gr *Reader) IterIndex() ([]map[string]any, error) {
	if err := gr.loadIndex(); err != nil {
		return nil, err
	}
	return gr.index, nil
}

// Resource is a bucket-level shared resource loaded via LoadResources.
type Resource struct {
	Blob []byte
	Meta map[string]any
}

// LoadResources scans the index for entries under ResourcePrefix (or
// tagged kind=="resource") and returns them keyed by resource name.
func (gr *Reader) LoadResources() (map[string]Resource, error) {
	if err := gr.loadIndex(); err != nil {
		return nil, err
	}
	out := map[string]Resource{}
	for _, e := range gr.index {
		rel, _ := e["rel"].(string)
		kind, _ := e["kind"].(string)
		name, _ := e["res_name"].(string)
		if name == "" && len(rel) > len(ResourcePrefix) && rel[:len(ResourcePrefix)] == ResourcePrefix {
			name = rel[len(ResourcePrefix):]
		}
		if kind != "resource" && !(len(rel) >= len(ResourcePrefix) && rel[:len(ResourcePrefix)] == ResourcePrefix) {
			continue
		}
		off, ln := asUint(e["offset"]), asUint(e["length"])
		if ln == 0 {
			continue
		}
		blob, err := gr.ReadBlob(off, ln)
		if err != nil {
			continue
		}
		meta := map[string]any{}
		for k, v := range e {
			if k == "offset" || k == "length" {
				continue
			}
			meta[k] = v
		}
		out[name] = Resource{Blob: blob, Meta: meta}
	}
	return out, nil
}

func asUint(v any) uint64 {
	switch x := v.(type) {
	case float64:
		return uint64(x)
	case uint64:
		return x
	default:
		return 0
	}
}

// ReadBlob reads length bytes at offset.
func (gr *Reader) ReadBlob(offset, length uint64) ([]byte, error) {
	return gr.readAt(int64(offset), int64(length))
}

// SHA256Blob computes sha256 of a blob segment in streaming chunks
// without materializing the whole segment twice.
func (gr *Reader) SHA256Blob(offset, length uint64, chunkSize int) (string, error) {
	return gr.hashBlob(offset, length, chunkSize, false)
}

// SHA256CRC32Blob computes both sha256 and crc32 of a blob segment in
// one streaming pass.
func (gr *Reader) SHA256CRC32Blob(offset, length uint64, chunkSize int) (string, uint32, error) {
	sha, err := gr.hashBlob(offset, length, chunkSize, true)
	if err != nil {
		return "", 0, err
	}
	parts := bytes.SplitN([]byte(sha), []byte("|"), 2)
	return string(parts[0]), uint32FromHex(string(parts[1])), nil
}

func (gr *Reader) hashBlob(offset, length uint64, chunkSize int, withCRC bool) (string, error) {
	if chunkSize <= 0 {
		chunkSize = 256 * 1024
	}
	h := sha256.New()
	var crc uint32
	remaining := int64(length)
	pos := int64(offset)
	for remaining > 0 {
		n := int64(chunkSize)
		if remaining < n {
			n = remaining
		}
		chunk, err := gr.readAt(pos, n)
		if err != nil {
			return "", err
		}
		h.Write(chunk)
		if withCRC {
			crc = crc32.Update(crc, crc32.IEEETable, chunk)
		}
		pos += n
		remaining -= n
	}
	sum := hexEncode(h.Sum(nil))
	if !withCRC {
		return sum, nil
	}
	return sum + "|" + hexEncode(putUint32LE(crc)), nil
}

func uint32FromHex(s string) uint32 {
	b, err := hexDecode(s)
	if err != nil || len(b) != 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.New("gca: odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexVal(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexVal(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexVal(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, errors.New("gca: invalid hex digit")
	}
}

func zlibDecompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
