package mbn

import "testing"

// TestUnpackSingleRawStream covers an MBN bundle with one raw-coded
// MAIN stream carrying "abc".
func TestUnpackSingleRawStream(t *testing.T) {
	raw := []byte{0x4D, 0x42, 0x4E, 0x01, 0x00, 0x03, 0x03, 0x03, 0x00, 0x61, 0x62, 0x63}
	streams, err := Unpack(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want 1", len(streams))
	}
	s := streams[0]
	if s.Stype != StypeMain || s.Codec != 3 || s.Ulen != 3 || len(s.Meta) != 0 || string(s.Comp) != "abc" {
		t.Fatalf("unexpected stream: %+v", s)
	}
}

// TestUnpackTwoStreamTextAndNums covers an MBN bundle carrying a
// zlib-coded TEXT stream and a num_v1-coded NUMS stream.
func TestUnpackTwoStreamTextAndNums(t *testing.T) {
	raw := []byte{
		0x4D, 0x42, 0x4E, 0x02,
		0x0A, 0x06, 0x05, 0x02, 0x00, 0x01, 0x02,
		0x0B, 0x07, 0x04, 0x01, 0x01, 0xFF, 0xAA,
	}
	streams, err := Unpack(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(streams))
	}
	if streams[0].Stype != StypeText || streams[0].Codec != 6 || streams[0].Ulen != 5 {
		t.Fatalf("stream 0: %+v", streams[0])
	}
	if streams[1].Stype != StypeNums || streams[1].Codec != 7 || streams[1].Ulen != 4 {
		t.Fatalf("stream 1: %+v", streams[1])
	}
	if len(streams[1].Meta) != 1 || streams[1].Meta[0] != 0xFF {
		t.Fatalf("stream 1 meta: %+v", streams[1].Meta)
	}
}

func TestPackUnpackRoundtrip(t *testing.T) {
	streams := []Stream{
		{Stype: StypeText, Codec: 6, Ulen: 5, Comp: []byte("hello")},
		{Stype: StypeNums, Codec: 7, Ulen: 4, Meta: []byte{0xFF}, Comp: []byte{0xAA}},
	}
	buf := Pack(streams)
	got, err := Unpack(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(streams) {
		t.Fatalf("got %d streams, want %d", len(got), len(streams))
	}
	for i, s := range streams {
		if got[i].Stype != s.Stype || got[i].Codec != s.Codec || got[i].Ulen != s.Ulen ||
			string(got[i].Comp) != string(s.Comp) {
			t.Errorf("stream %d mismatch: got %+v, want %+v", i, got[i], s)
		}
	}
}

func TestUnpackRejectsDuplicateStype(t *testing.T) {
	buf := Pack([]Stream{
		{Stype: StypeMain, Codec: 3, Ulen: 1, Comp: []byte("a")},
		{Stype: StypeMain, Codec: 3, Ulen: 1, Comp: []byte("b")},
	})
	if _, err := Unpack(buf); err == nil {
		t.Fatal("expected error on duplicate stype")
	}
}

func TestUnpackRejectsZeroStreams(t *testing.T) {
	buf := append([]byte{}, magic...)
	buf = append(buf, 0x00)
	if _, err := Unpack(buf); err == nil {
		t.Fatal("expected error on nstreams == 0")
	}
}

func TestUnpackRejectsBadMagic(t *testing.T) {
	if _, err := Unpack([]byte("XXX\x01")); err == nil {
		t.Fatal("expected error on bad magic")
	}
}

func TestByStype(t *testing.T) {
	streams := []Stream{{Stype: StypeText}, {Stype: StypeNums}}
	if s := ByStype(streams, StypeNums); s == nil || s.Stype != StypeNums {
		t.Fatalf("ByStype(NUMS) = %+v", s)
	}
	if s := ByStype(streams, StypeMeta); s != nil {
		t.Fatalf("ByStype(META) = %+v, want nil", s)
	}
}
