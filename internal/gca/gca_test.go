package gca

import (
	"bytes"
	"encoding/binary"
	"testing"
)

type memWriter struct{ buf bytes.Buffer }

func (m *memWriter) Write(p []byte) (int, error) { return m.buf.Write(p) }

func buildArchive(t *testing.T) ([]byte, []Entry) {
	t.Helper()
	var mw memWriter
	gw := NewWriter(&mw)
	e1, err := gw.Append("file1.gcc", []byte("first blob"), nil)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := gw.Append("file2.gcc", []byte("second blob, a bit longer"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return mw.buf.Bytes(), []Entry{e1, e2}
}

// TestTrailerFixedLayout checks the GCA1 trailer's fixed 16-byte
// layout: magic(4) | u64LE index_len | u32LE crc32(index_zlib).
func TestTrailerFixedLayout(t *testing.T) {
	raw, _ := buildArchive(t)
	if len(raw) < TrailerLen {
		t.Fatalf("archive too short: %d bytes", len(raw))
	}
	trailer := raw[len(raw)-TrailerLen:]
	if string(trailer[:4]) != Magic {
		t.Fatalf("magic = %q, want %q", trailer[:4], Magic)
	}
	idxLen := binary.LittleEndian.Uint64(trailer[4:12])
	idxCRC := binary.LittleEndian.Uint32(trailer[12:16])

	idxZ := raw[len(raw)-TrailerLen-int(idxLen) : len(raw)-TrailerLen]
	if uint64(len(idxZ)) != idxLen {
		t.Fatalf("index_len mismatch")
	}
	if crc32Of(idxZ) != idxCRC {
		t.Fatalf("index CRC mismatch")
	}
}

func TestWriterReaderRoundtrip(t *testing.T) {
	raw, entries := buildArchive(t)
	gr := NewReader(bytes.NewReader(raw), int64(len(raw)))

	trailer, err := gr.IndexTrailer()
	if err != nil {
		t.Fatal(err)
	}
	if trailer == nil || trailer.Kind != "trailer" || trailer.Entries != 2 {
		t.Fatalf("trailer = %+v", trailer)
	}

	for _, e := range entries {
		blob, err := gr.ReadBlob(e.Offset, e.Length)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]bool{"file1.gcc": true, "file2.gcc": true}
		if !want[e.Rel] {
			t.Fatalf("unexpected rel %q", e.Rel)
		}
		if len(blob) != int(e.Length) {
			t.Fatalf("blob length = %d, want %d", len(blob), e.Length)
		}
	}
}

func TestResourceRoundtrip(t *testing.T) {
	var mw memWriter
	gw := NewWriter(&mw)
	if _, err := gw.Append("data.gcc", []byte("payload"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := gw.AppendResource("num_dict_v1", []byte{1, 2, 3, 4}, nil); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	raw := mw.buf.Bytes()

	gr := NewReader(bytes.NewReader(raw), int64(len(raw)))
	res, err := gr.LoadResources()
	if err != nil {
		t.Fatal(err)
	}
	r, ok := res["num_dict_v1"]
	if !ok {
		t.Fatal("resource num_dict_v1 not found")
	}
	if !bytes.Equal(r.Blob, []byte{1, 2, 3, 4}) {
		t.Fatalf("resource blob = %v", r.Blob)
	}
}

func TestIndexBodySHA256MatchesEntryLinesOnly(t *testing.T) {
	raw, _ := buildArchive(t)
	gr := NewReader(bytes.NewReader(raw), int64(len(raw)))
	trailer, err := gr.IndexTrailer()
	if err != nil {
		t.Fatal(err)
	}
	idxRaw, err := gr.IndexRaw()
	if err != nil {
		t.Fatal(err)
	}
	lines := bytes.Split(bytes.TrimRight(idxRaw, "\n"), []byte("\n"))
	if len(lines) < 1 {
		t.Fatal("expected at least the trailer line")
	}
	body := bytes.Join(lines[:len(lines)-1], []byte("\n"))
	if len(lines) > 1 {
		body = append(body, '\n')
	}
	if sha256Hex(body) != trailer.IndexBodySHA256 {
		t.Fatalf("index_body_sha256 mismatch: got body hash %s, trailer says %s", sha256Hex(body), trailer.IndexBodySHA256)
	}
}

func TestReaderRejectsCorruptedTrailerMagic(t *testing.T) {
	raw, _ := buildArchive(t)
	corrupt := append([]byte{}, raw...)
	corrupt[len(corrupt)-16] ^= 0xFF
	gr := NewReader(bytes.NewReader(corrupt), int64(len(corrupt)))
	if _, err := gr.IndexTrailer(); err == nil {
		t.Fatal("expected error on corrupted trailer magic")
	}
}

func TestReaderRejectsCorruptedIndexCRC(t *testing.T) {
	raw, _ := buildArchive(t)
	corrupt := append([]byte{}, raw...)
	// flip a byte inside the compressed index region, well before the trailer.
	corrupt[len(corrupt)-TrailerLen-5] ^= 0xFF
	gr := NewReader(bytes.NewReader(corrupt), int64(len(corrupt)))
	if _, err := gr.IndexTrailer(); err == nil {
		t.Fatal("expected error on corrupted index bytes")
	}
}

func TestReaderRejectsCorruptedBlobViaHashMismatch(t *testing.T) {
	raw, entries := buildArchive(t)
	corrupt := append([]byte{}, raw...)
	e := entries[0]
	corrupt[e.Offset] ^= 0xFF
	gr := NewReader(bytes.NewReader(corrupt), int64(len(corrupt)))
	sha, err := gr.SHA256Blob(e.Offset, e.Length, 0)
	if err != nil {
		t.Fatal(err)
	}
	untouched := sha256Hex([]byte("first blob"))
	if sha == untouched {
		t.Fatal("expected recomputed hash to differ after byte flip")
	}
}
