package layer

import (
	"bytes"
	"testing"

	"github.com/gcomneno/onion-compressor-framework/internal/container"
)

func encodeDecode(t *testing.T, l Layer, data []byte) []byte {
	t.Helper()
	res, err := l.Encode(data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := l.Decode(res.Streams, res.Meta)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestBytesLayerRoundtrip(t *testing.T) {
	data := []byte("hello, world")
	got := encodeDecode(t, BytesLayer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestVC0LayerRoundtrip(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("Hello World 123!"),
		[]byte(""),
		[]byte("aeiouAEIOU"),
		[]byte("bcdfg"),
	} {
		got := encodeDecode(t, VC0Layer{}, data)
		if !bytes.Equal(got, data) {
			t.Fatalf("VC0 roundtrip: got %q, want %q", got, data)
		}
	}
}

func TestSyllablesItLayerRoundtrip(t *testing.T) {
	data := []byte("la casa bella, il gatto nero!")
	got := encodeDecode(t, SyllablesItLayer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestWordsItLayerRoundtrip(t *testing.T) {
	data := []byte("the quick brown fox, jumps over 42 lazy dogs.")
	got := encodeDecode(t, WordsItLayer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestLinesDictLayerRoundtrip(t *testing.T) {
	data := []byte("alpha\nbeta\nalpha\ngamma\nbeta\n")
	got := encodeDecode(t, LinesDictLayer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestLinesDictLayerNoTrailingNewline(t *testing.T) {
	data := []byte("one\ntwo\nthree")
	got := encodeDecode(t, LinesDictLayer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestLinesRLELayerRoundtrip(t *testing.T) {
	data := []byte("x\nx\nx\ny\ny\nz\n")
	got := encodeDecode(t, LinesRLELayer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestLinesRLELayerEmpty(t *testing.T) {
	got := encodeDecode(t, LinesRLELayer{}, []byte(""))
	if len(got) != 0 {
		t.Fatalf("got %q, want empty", got)
	}
}

// TestSplitTextNumsSentinelReplacesDigitRun checks that each digit run
// collapses to a single sentinel byte in TEXT while its parsed value
// lands in NUMS.
func TestSplitTextNumsSentinelReplacesDigitRun(t *testing.T) {
	data := []byte("ab12cd")
	res, err := SplitTextNumsLayer{}.Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	wantText := []byte{'a', 'b', 0x00, 'c', 'd'}
	if !bytes.Equal(res.Streams[0x0A], wantText) {
		t.Fatalf("TEXT = % X, want % X", res.Streams[0x0A], wantText)
	}
	out, err := SplitTextNumsLayer{}.Decode(res.Streams, res.Meta)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("got %q, want %q", out, data)
	}
}

func TestSplitTextNumsLayerRoundtripVariants(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("no digits here"),
		[]byte("007 leading zeros 0099"),
		[]byte("12345"),
		[]byte(""),
		[]byte("a1b22c333"),
	} {
		got := encodeDecode(t, SplitTextNumsLayer{}, data)
		if !bytes.Equal(got, data) {
			t.Fatalf("got %q, want %q", got, data)
		}
	}
}

func TestTplLinesV0LayerRoundtrip(t *testing.T) {
	data := []byte("user 42 logged in\nuser 7 logged in\nuser -3 logged out\n")
	got := encodeDecode(t, TplLinesV0Layer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestTplLinesV0LayerEmptyInput(t *testing.T) {
	got := encodeDecode(t, TplLinesV0Layer{}, []byte(""))
	if len(got) != 0 {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestTplLinesSharedV0LayerRoundtripNoBase(t *testing.T) {
	data := []byte("code 100\ncode 200\ncode 100\n")
	got := encodeDecode(t, TplLinesSharedV0Layer{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestTplLinesSharedV0LayerRoundtripWithBase(t *testing.T) {
	base := [][][]byte{
		{[]byte("code "), []byte("")},
	}
	tag := TemplateDictTag8(base)
	l := TplLinesSharedV0Layer{SharedBase: base, BaseTag8: tag}

	data := []byte("code 100\ncode 200\nstatus 5\n")
	res, err := l.Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	out, err := l.Decode(res.Streams, res.Meta)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("got %q, want %q", out, data)
	}
}

func TestTplLinesSharedV0LayerRejectsTagMismatch(t *testing.T) {
	base := [][][]byte{{[]byte("code "), []byte("")}}
	tag := TemplateDictTag8(base)
	writer := TplLinesSharedV0Layer{SharedBase: base, BaseTag8: tag}

	data := []byte("code 100\ncode 200\n")
	res, err := writer.Encode(data)
	if err != nil {
		t.Fatal(err)
	}

	reader := TplLinesSharedV0Layer{SharedBase: [][][]byte{{[]byte("nope")}}, BaseTag8: [8]byte{0xFF}}
	if _, err := reader.Decode(res.Streams, res.Meta); err == nil {
		t.Fatal("expected error on base dictionary tag mismatch")
	}
}

func TestVocabListRoundtrip(t *testing.T) {
	vocab := [][]byte{[]byte("alpha"), []byte(""), []byte("gamma\n")}
	packed := PackVocabList(vocab)
	got, err := UnpackVocabList(packed)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vocab) {
		t.Fatalf("got %d entries, want %d", len(got), len(vocab))
	}
	for i := range vocab {
		if !bytes.Equal(got[i], vocab[i]) {
			t.Errorf("entry %d: got %q, want %q", i, got[i], vocab[i])
		}
	}
}

func TestUnpackVocabListLegacyV1(t *testing.T) {
	// hand-build the legacy u32-BE framing: count, then (len, bytes) pairs.
	var buf []byte
	buf = append(buf, 0, 0, 0, 2)
	for _, tok := range [][]byte{[]byte("ab"), []byte("cde")} {
		buf = append(buf, byte(len(tok)>>24), byte(len(tok)>>16), byte(len(tok)>>8), byte(len(tok)))
		buf = append(buf, tok...)
	}
	got, err := UnpackVocabList(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || string(got[0]) != "ab" || string(got[1]) != "cde" {
		t.Fatalf("got %v", got)
	}
}

func TestRegistryByCodeAndByName(t *testing.T) {
	for code := range registry {
		l, ok := ByCode(code)
		if !ok || l.Code() != code {
			t.Errorf("ByCode(%d) inconsistent", code)
		}
	}
	if l, ok := ByName("bytes"); !ok || l.Code() != container.LayerBytes {
		t.Fatalf("ByName(bytes) = %v, %v", l, ok)
	}
	if _, ok := ByName("does_not_exist"); ok {
		t.Fatal("expected ByName to fail for unknown layer")
	}
}
