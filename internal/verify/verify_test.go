package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gcomneno/onion-compressor-framework/internal/dirpack"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/gca"
)

func buildTestArchive(t *testing.T, withResource bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gca")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gw := gca.NewWriter(f)
	if withResource {
		if _, err := gw.AppendResource("num_dict_v1", []byte{1, 2, 3}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := gw.Append("a.gcc", []byte("blob one contents"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := gw.Append("b.gcc", []byte("blob two, a bit different"), nil); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLightArchiveOK(t *testing.T) {
	path := buildTestArchive(t, false)
	r, err := LightArchive(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK {
		t.Fatalf("expected OK, got errors: %v", r.Errors)
	}
}

func TestLightArchiveMissingRequiredResource(t *testing.T) {
	path := buildTestArchive(t, false)
	r, err := LightArchive(path, []string{"num_dict_v1"})
	if err != nil {
		t.Fatal(err)
	}
	if r.OK {
		t.Fatal("expected failure for missing required resource")
	}
}

func TestLightArchiveWithResourcePresent(t *testing.T) {
	path := buildTestArchive(t, true)
	r, err := LightArchive(path, []string{"num_dict_v1"})
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK {
		t.Fatalf("expected OK, got errors: %v", r.Errors)
	}
}

func TestLightArchiveDetectsIndexBodyTamper(t *testing.T) {
	path := buildTestArchive(t, false)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the compressed index, near its start, well clear
	// of the fixed 16-byte trailer.
	corrupt := append([]byte{}, raw...)
	corrupt[len(corrupt)-30] ^= 0xFF
	cpath := filepath.Join(t.TempDir(), "corrupt.gca")
	if err := os.WriteFile(cpath, corrupt, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LightArchive(cpath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.OK {
		t.Fatal("expected corrupted index to fail verification")
	}
}

func TestFullArchiveDetectsBlobTamper(t *testing.T) {
	path := buildTestArchive(t, false)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	corrupt := append([]byte{}, raw...)
	corrupt[0] ^= 0xFF // first byte of the first blob
	cpath := filepath.Join(t.TempDir(), "corrupt.gca")
	if err := os.WriteFile(cpath, corrupt, 0o644); err != nil {
		t.Fatal(err)
	}
	// The index_body hash still matches since blob bytes aren't part of
	// it; only full mode's per-blob sha256/crc32 recomputation against
	// the index's declared blob_sha256/blob_crc32 catches this.
	r, err := FullArchive(cpath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Mode != "full" {
		t.Fatalf("Mode = %q, want full", r.Mode)
	}
	if r.OK {
		t.Fatal("FullArchive did not detect a flipped blob byte")
	}
	if _, ok := r.MostSevere.(*errs.HashMismatch); !ok {
		t.Fatalf("MostSevere = %T, want *errs.HashMismatch", r.MostSevere)
	}
}

func TestFullArchiveOK(t *testing.T) {
	path := buildTestArchive(t, false)
	r, err := FullArchive(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK {
		t.Fatalf("expected OK, got errors: %v", r.Errors)
	}
}

func TestSingleBundleLightAndFull(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello 1 world 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("more text 3 here 4"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := dirpack.PackSingleTextOnly(root)
	if err != nil {
		t.Fatal(err)
	}

	r, err := SingleBundle(res.Bundle, res.Index, false)
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK || r.Mode != "light" {
		t.Fatalf("light: OK=%v mode=%q errs=%v", r.OK, r.Mode, r.Errors)
	}

	rf, err := SingleBundle(res.Bundle, res.Index, true)
	if err != nil {
		t.Fatal(err)
	}
	if !rf.OK || rf.Mode != "full" {
		t.Fatalf("full: OK=%v mode=%q errs=%v", rf.OK, rf.Mode, rf.Errors)
	}
}

func TestSingleBundleFullDetectsTamperedPayloadAsHashMismatch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("plain text with 42 in it"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := dirpack.PackSingleTextOnly(root)
	if err != nil {
		t.Fatal(err)
	}
	corrupt := append([]byte{}, res.Bundle...)
	corrupt[len(corrupt)-1] ^= 0xFF

	r, err := SingleBundle(corrupt, res.Index, true)
	if err != nil {
		t.Fatal(err)
	}
	if r.OK {
		t.Fatal("expected corrupted bundle to fail full verification")
	}
}

func TestSingleBundleWrongIndexShaFailsFull(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("some content 5 more 6"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := dirpack.PackSingleTextOnly(root)
	if err != nil {
		t.Fatal(err)
	}
	idx := res.Index
	idx.Entries = append([]dirpack.BundleIndexEntry{}, idx.Entries...)
	idx.Entries[0].SHA256 = "0000000000000000000000000000000000000000000000000000000000000000"[:64]

	r, err := SingleBundle(res.Bundle, idx, true)
	if err != nil {
		t.Fatal(err)
	}
	if r.OK {
		t.Fatal("expected sha256 mismatch to fail verification")
	}
}
