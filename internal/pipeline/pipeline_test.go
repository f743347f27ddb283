package pipeline

import (
	"bytes"
	"testing"

	"github.com/gcomneno/onion-compressor-framework/internal/decode"
)

func specJSON(body string) []byte { return []byte(body) }

func TestParseValidSpec(t *testing.T) {
	s, err := Parse(specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"bytes","codec":"zlib"}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Layer != "bytes" || s.Codec != "zlib" {
		t.Fatalf("got %+v", s)
	}
}

func TestParseRejectsUnknownSchema(t *testing.T) {
	if _, err := Parse(specJSON(`{"spec":"nope","layer":"bytes"}`)); err == nil {
		t.Fatal("expected error on unknown spec schema")
	}
}

func TestParseRejectsUnknownLayer(t *testing.T) {
	if _, err := Parse(specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"nonexistent"}`)); err == nil {
		t.Fatal("expected error on unknown layer")
	}
}

func TestParseRejectsUnknownCodec(t *testing.T) {
	if _, err := Parse(specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"bytes","codec":"nonexistent"}`)); err == nil {
		t.Fatal("expected error on unknown codec")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse(specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"bytes","bogus":1}`)); err == nil {
		t.Fatal("expected error on unknown top-level field")
	}
}

func TestParseRejectsUnknownStreamName(t *testing.T) {
	raw := specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"split_text_nums","stream_codecs":{"BOGUS":"zlib"}}`)
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error on unknown stream name")
	}
}

func TestCompressSingleStreamRoundtrip(t *testing.T) {
	s, err := Parse(specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"bytes","codec":"zlib"}`))
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("the quick brown fox jumps over the lazy dog")
	buf, err := Compress(data, s)
	if err != nil {
		t.Fatal(err)
	}
	info, err := decode.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(info.Data, data) {
		t.Fatalf("got %q, want %q", info.Data, data)
	}
	if info.Layer != "bytes" || info.Codec != "zlib" {
		t.Fatalf("layer=%q codec=%q", info.Layer, info.Codec)
	}
}

func TestCompressMBNAutoRuleMultiStream(t *testing.T) {
	s, err := Parse(specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"split_text_nums","codec":"zlib"}`))
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("order 42 shipped, order 7 delayed")
	buf, err := Compress(data, s)
	if err != nil {
		t.Fatal(err)
	}
	info, err := decode.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(info.Data, data) {
		t.Fatalf("got %q, want %q", info.Data, data)
	}
	if info.Codec != "mbn" {
		t.Fatalf("codec = %q, want mbn (multi-stream layer should auto-select MBN)", info.Codec)
	}
}

func TestCompressMBNForcedFalseRejectsMultiStream(t *testing.T) {
	f := false
	s := &Spec{SpecName: SpecSchema, Layer: "split_text_nums", Codec: "zlib", MBN: &f}
	if _, err := Compress([]byte("has 1 digit"), s); err == nil {
		t.Fatal("expected error: mbn=false with a multi-stream layer")
	}
}

func TestCompressMBNForcedTrueSingleStreamLayer(t *testing.T) {
	tr := true
	s := &Spec{SpecName: SpecSchema, Layer: "bytes", Codec: "zlib", MBN: &tr}
	data := []byte("forced mbn framing over a single-stream layer")
	buf, err := Compress(data, s)
	if err != nil {
		t.Fatal(err)
	}
	info, err := decode.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(info.Data, data) {
		t.Fatalf("got %q, want %q", info.Data, data)
	}
	if info.Codec != "mbn" {
		t.Fatalf("codec = %q, want mbn", info.Codec)
	}
}

func TestCompressPerStreamCodecs(t *testing.T) {
	raw := specJSON(`{"spec":"gcc-ocf.pipeline.v1","layer":"split_text_nums","stream_codecs":{"TEXT":"zlib","NUMS":"num_v1"}}`)
	s, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("id 1 id 2 id 3 id 4 id 5 id 6 id 7 id 8 id 9 id 10")
	buf, err := Compress(data, s)
	if err != nil {
		t.Fatal(err)
	}
	info, err := decode.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(info.Data, data) {
		t.Fatalf("got %q, want %q", info.Data, data)
	}
}
