package gca

import (
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Writer appends blobs to an underlying stream and, on Close, writes
// the zlib-compressed JSONL index and the fixed trailer. It streams
// blobs out immediately rather than buffering the whole archive, using
// GCA1's blob+index+trailer layout instead of block-framed records.
type Writer struct {
	w       io.Writer
	offset  uint64
	entries []Entry
	closed  bool
}

// NewWriter wraps an io.Writer positioned at offset 0 of a fresh file.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append writes blob at the current offset and records an index entry.
// If meta does not already carry blob_sha256/blob_crc32, both are
// computed and added.
func (gw *Writer) Append(rel string, blob []byte, meta map[string]any) (Entry, error) {
	if gw.closed {
		return Entry{}, errors.New("gca: Append on closed writer")
	}
	m := map[string]any{}
	for k, v := range meta {
		m[k] = v
	}
	if _, ok := m["blob_sha256"]; !ok {
		m["blob_sha256"] = sha256Hex(blob)
	}
	if _, ok := m["blob_crc32"]; !ok {
		m["blob_crc32"] = crc32Of(blob)
	}

	n, err := gw.w.Write(blob)
	if err != nil {
		return Entry{}, errors.Wrap(err, "gca: failed to write blob")
	}
	if n != len(blob) {
		return Entry{}, errors.New("gca: short write on blob")
	}

	ent := Entry{Rel: rel, Offset: gw.offset, Length: uint64(len(blob)), Meta: m}
	gw.offset += uint64(len(blob))
	gw.entries = append(gw.entries, ent)
	return ent, nil
}

// AppendResource stores a bucket-level shared resource (e.g. a
// tpl_dict_v0 or num_dict_v1 blob), discoverable via Reader.LoadResources.
func (gw *Writer) AppendResource(name string, blob []byte, meta map[string]any) (Entry, error) {
	if name == "" {
		return Entry{}, errors.New("gca: empty resource name")
	}
	m := map[string]any{}
	for k, v := range meta {
		m[k] = v
	}
	if _, ok := m["kind"]; !ok {
		m["kind"] = "resource"
	}
	if _, ok := m["res_name"]; !ok {
		m["res_name"] = name
	}
	return gw.Append(ResourcePrefix+name, blob, m)
}

// Close writes the index and trailer. The underlying writer is left
// open; callers that own an *os.File should close it themselves.
func (gw *Writer) Close() error {
	if gw.closed {
		return nil
	}
	gw.closed = true

	var idxBody []byte
	for _, e := range gw.entries {
		line, err := marshalEntryLine(e)
		if err != nil {
			return errors.Wrap(err, "gca: failed to marshal index line")
		}
		idxBody = append(idxBody, line...)
		idxBody = append(idxBody, '\n')
	}
	bodySHA := sha256Hex(idxBody)

	trailerLine, err := json.Marshal(Trailer{
		Kind:            "trailer",
		Schema:          indexSchema,
		IndexBodySHA256: bodySHA,
		Entries:         len(gw.entries),
	})
	if err != nil {
		return errors.Wrap(err, "gca: failed to marshal trailer record")
	}

	idxRaw := append(append([]byte{}, idxBody...), trailerLine...)
	idxRaw = append(idxRaw, '\n')

	idxZ, err := zlibCompress(idxRaw)
	if err != nil {
		return errors.Wrap(err, "gca: failed to compress index")
	}
	idxCRC := crc32Of(idxZ)

	if _, err := gw.w.Write(idxZ); err != nil {
		return errors.Wrap(err, "gca: failed to write index")
	}

	trailer := append([]byte(Magic), putUint64LE(uint64(len(idxZ)))...)
	trailer = append(trailer, putUint32LE(idxCRC)...)
	if _, err := gw.w.Write(trailer); err != nil {
		return errors.Wrap(err, "gca: failed to write trailer")
	}
	return nil
}

func marshalEntryLine(e Entry) ([]byte, error) {
	m := map[string]any{"rel": e.Rel, "offset": e.Offset, "length": e.Length}
	for k, v := range e.Meta {
		if _, reserved := m[k]; reserved {
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

func zlibCompress(data []byte) ([]byte, error) {
	var buf bufferWriter
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.b, nil
}

type bufferWriter struct{ b []byte }

func (b *bufferWriter) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}
