package container

import (
	"bytes"
	"testing"

	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

func TestDecodeAnyV6RawPayload(t *testing.T) {
	raw := []byte("hello world")
	payload := varint.Put(nil, uint64(len(raw)))
	payload = append(payload, raw...)
	buf := Encode(LayerBytes, 3, nil, payload, false) // codec 3 = raw

	data, layerName, codecName, meta, err := DecodeAny(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, raw) {
		t.Fatalf("data = %q, want %q", data, raw)
	}
	if layerName != "bytes" || codecName != "raw" {
		t.Fatalf("layer=%q codec=%q", layerName, codecName)
	}
	if meta != nil {
		t.Fatalf("meta = %v, want nil", meta)
	}
}

func TestDecodeAnyV6MBNPassthrough(t *testing.T) {
	mbnPayload := []byte("MBN-bytes-not-parsed-here")
	buf := Encode(LayerSplitTextNums, 4, nil, mbnPayload, false) // codec 4 = mbn
	data, _, codecName, _, err := DecodeAny(buf)
	if err != nil {
		t.Fatal(err)
	}
	if codecName != "mbn" {
		t.Fatalf("codec = %q, want mbn", codecName)
	}
	if !bytes.Equal(data, mbnPayload) {
		t.Fatalf("data = %q, want the raw MBN payload unpacked by a higher layer", data)
	}
}

func TestDecodeAnyRejectsUnknownVersion(t *testing.T) {
	buf := []byte{'G', 'C', 'C', 9, 0, 0, 0}
	if _, _, _, _, err := DecodeAny(buf); err == nil {
		t.Fatal("expected error on unsupported version")
	}
}
