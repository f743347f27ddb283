package decode

import (
	"bytes"
	"testing"

	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
)

func TestDecodeVC0MBNBundle(t *testing.T) {
	mask := []byte("VCVCV")
	vowels := []byte("aei")
	cons := []byte("bc")
	streams := []mbn.Stream{
		{Stype: mbn.StypeMask, Codec: 3, Ulen: len(mask), Comp: mask},
		{Stype: mbn.StypeVowels, Codec: 3, Ulen: len(vowels), Comp: vowels},
		{Stype: mbn.StypeCons, Codec: 3, Ulen: len(cons), Comp: cons},
	}
	payload := mbn.Pack(streams)
	buf := container.Encode(container.LayerVC0, 4, nil, payload, false) // codec 4 = mbn

	info, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("abeci")
	if !bytes.Equal(info.Data, want) {
		t.Fatalf("got %q, want %q", info.Data, want)
	}
	if info.Layer != "vc0" || info.Codec != "mbn" {
		t.Fatalf("layer=%q codec=%q", info.Layer, info.Codec)
	}
}

func TestDecodeRejectsUnknownLayer(t *testing.T) {
	buf := []byte{'G', 'C', 'C', 6, 0, 200, 3} // layer_code 200 is unassigned
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error on unknown layer code")
	}
}

func TestDecodeMBNAssemblyRejectsBadStreamCodec(t *testing.T) {
	streams := []mbn.Stream{{Stype: mbn.StypeMain, Codec: 250, Ulen: 3, Comp: []byte("abc")}}
	payload := mbn.Pack(streams)
	buf := container.Encode(container.LayerBytes, 4, nil, payload, false)
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error on unknown per-stream codec code")
	}
}
