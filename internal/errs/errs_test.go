package errs

import "testing"

func TestExitCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{NewUsageError("bad", nil), ExitUsage},
		{NewCorruptPayload("bad", nil), ExitGeneric},
		{NewBadMagic("bad"), ExitGeneric},
		{NewUnsupportedVersion("bad", nil), ExitUnsupportedVersion},
		{NewMissingResource("bad", nil), ExitMissingResource},
		{NewHashMismatch("bad", nil), ExitHashMismatch},
	}
	for _, c := range cases {
		if got := ExitCodeOf(c.err); got != c.want {
			t.Errorf("ExitCodeOf(%T) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := NewBadMagic("inner")
	err := NewCorruptPayload("outer", cause)
	if err.Error() != "outer: inner" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if err.Unwrap() != error(cause) {
		t.Fatal("Unwrap did not return the cause")
	}
}

func TestMostSevereOrdersByUsageFirst(t *testing.T) {
	batch := []error{
		NewHashMismatch("h", nil),
		NewMissingResource("m", nil),
		NewUsageError("u", nil),
		NewCorruptPayload("c", nil),
	}
	got := MostSevere(batch)
	if _, ok := got.(*UsageError); !ok {
		t.Fatalf("MostSevere = %T, want *UsageError", got)
	}
}

func TestMostSevereSkipsNilAndEmpty(t *testing.T) {
	if got := MostSevere(nil); got != nil {
		t.Fatalf("MostSevere(nil batch) = %v, want nil", got)
	}
	if got := MostSevere([]error{nil, nil}); got != nil {
		t.Fatalf("MostSevere(all nil) = %v, want nil", got)
	}
}

func TestMostSevereTiesKeepFirstOccurrence(t *testing.T) {
	first := NewHashMismatch("first", nil)
	second := NewHashMismatch("second", nil)
	got := MostSevere([]error{first, second})
	if got != error(first) {
		t.Fatal("MostSevere should keep the first occurrence on a tie")
	}
}
