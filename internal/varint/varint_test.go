package varint

import "testing"

func TestPutGetRoundtrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, MaxMagnitude}
	for _, v := range cases {
		buf := Put(nil, v)
		got, n, err := Get(buf)
		if err != nil {
			t.Fatalf("Get(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("Get(%d) = %d", v, got)
		}
		if n != len(buf) {
			t.Errorf("Get(%d) consumed %d, want %d", v, n, len(buf))
		}
	}
}

func TestGetTruncated(t *testing.T) {
	if _, _, err := Get([]byte{0x80, 0x80}); err == nil {
		t.Fatal("expected error on truncated varint")
	}
}

func TestGetMagnitudeCap(t *testing.T) {
	// 5 continuation bytes plus a final byte, all low bits set, decode
	// to 2^42-1, which exceeds the 2^40 cap.
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}
	if _, _, err := Get(buf); err == nil {
		t.Fatal("expected error on magnitude over cap")
	}
}

func TestZigzagRoundtrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 42, -42, 1 << 30, -(1 << 30)} {
		if got := Unzigzag(Zigzag(v)); got != v {
			t.Errorf("Unzigzag(Zigzag(%d)) = %d", v, got)
		}
	}
}

func TestEncodeDecodeInts(t *testing.T) {
	vals := []int64{123, 0, -7, 999999}
	buf := EncodeInts(vals)
	got, err := DecodeInts(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vals) {
		t.Fatalf("got %d values, want %d", len(got), len(vals))
	}
	for i, v := range vals {
		if got[i] != v {
			t.Errorf("index %d: got %d, want %d", i, got[i], v)
		}
	}
}
