// Package verify implements GCA1 archive verification: light mode
// checks structural integrity (trailer, index body hash,
// required-resource presence) and does not cross-check the archive
// against a manifest; full
// mode adds a streaming per-blob hash recomputation and, for
// single-container mixed archives, a decode pass whose failures are
// re-raised as HashMismatch rather than CorruptPayload.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/gcomneno/onion-compressor-framework/internal/decode"
	"github.com/gcomneno/onion-compressor-framework/internal/dirpack"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/gca"
)

// Report is the outcome of verifying one archive.
type Report struct {
	Path      string
	Mode      string // "light" or "full"
	OK        bool
	Errors    []error
	MostSevere error
}

func (r *Report) fail(err error) {
	r.OK = false
	r.Errors = append(r.Errors, err)
}

// finalize sets MostSevere from the accumulated Errors, reporting the
// most severe in descending UsageError > CorruptPayload >
// UnsupportedVersion > MissingResource > HashMismatch order via
// errs.MostSevere.
func (r *Report) finalize() *Report {
	if len(r.Errors) > 0 {
		r.MostSevere = errs.MostSevere(r.Errors)
	}
	return r
}

// LightArchive checks trailer well-formedness, the index body's
// declared SHA256, and that the archive contains every resource named
// in requiredResources.
func LightArchive(path string, requiredResources []string) (*Report, error) {
	r := &Report{Path: path, Mode: "light", OK: true}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "verify: open "+path)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "verify: stat "+path)
	}
	gr := gca.NewReader(f, st.Size())

	trailer, err := gr.IndexTrailer()
	if err != nil {
		r.fail(err)
		return r.finalize(), nil
	}
	if trailer == nil {
		r.fail(errs.NewCorruptPayload("verify: archive has no trailer record", nil))
		return r.finalize(), nil
	}

	indexRaw, err := gr.IndexRaw()
	if err != nil {
		r.fail(err)
		return r.finalize(), nil
	}
	bodyEnd := len(indexRaw)
	if idx := lastNewline(indexRaw); idx >= 0 {
		bodyEnd = idx
	}
	sum := sha256.Sum256(indexRaw[:bodyEnd])
	if hex.EncodeToString(sum[:]) != trailer.IndexBodySHA256 {
		r.fail(errs.NewHashMismatch("verify: index_body_sha256 mismatch", nil))
	}

	resources, err := gr.LoadResources()
	if err != nil {
		r.fail(err)
	} else {
		for _, name := range requiredResources {
			if _, ok := resources[name]; !ok {
				r.fail(errs.NewMissingResource("verify: missing required resource \""+name+"\"", nil))
			}
		}
	}

	return r.finalize(), nil
}

// lastNewline returns the length of the entry-record body: the offset
// just past the final entry line's terminating newline, where the
// trailer record starts, or 0 if the index holds no entry lines.
func lastNewline(raw []byte) int {
	lines := splitLines(raw)
	if len(lines) <= 1 {
		return 0
	}
	// bodyEnd is everything up to (not including) the trailer line.
	total := 0
	for _, l := range lines[:len(lines)-1] {
		total += len(l) + 1
	}
	return total
}

func splitLines(raw []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range raw {
		if b == '\n' {
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	if start < len(raw) {
		out = append(out, raw[start:])
	}
	return out
}

// FullArchive runs LightArchive plus a streaming SHA256/CRC32
// recomputation of every blob (data and resource entries) against the
// index's declared coordinates.
func FullArchive(path string, requiredResources []string) (*Report, error) {
	light, err := LightArchive(path, requiredResources)
	if err != nil {
		return nil, err
	}
	r := &Report{Path: path, Mode: "full", OK: light.OK, Errors: append([]error{}, light.Errors...)}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "verify: open "+path)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "verify: stat "+path)
	}
	gr := gca.NewReader(f, st.Size())

	rows, err := gr.IterIndex()
	if err != nil {
		r.fail(err)
		return r.finalize(), nil
	}
	for _, row := range rows {
		kind, _ := row["kind"].(string)
		if kind == "trailer" {
			continue
		}
		rel, _ := row["rel"].(string)
		off, ln := asUint(row["offset"]), asUint(row["length"])
		sum, crc, err := gr.SHA256CRC32Blob(off, ln, 256*1024)
		if err != nil {
			r.fail(errs.NewHashMismatch(fmt.Sprintf("verify: blob %q unreadable at [%d,%d)", rel, off, off+ln), err))
			continue
		}
		if wantSHA, ok := row["blob_sha256"].(string); ok && sum != wantSHA {
			r.fail(errs.NewHashMismatch(fmt.Sprintf("verify: blob %q sha256 mismatch", rel), nil))
			continue
		}
		if wantCRC, ok := row["blob_crc32"]; ok && crc != uint32(asUint(wantCRC)) {
			r.fail(errs.NewHashMismatch(fmt.Sprintf("verify: blob %q crc32 mismatch", rel), nil))
		}
	}
	return r.finalize(), nil
}

func asUint(v any) uint64 {
	switch x := v.(type) {
	case float64:
		return uint64(x)
	case uint64:
		return x
	default:
		return 0
	}
}

// SingleBundle verifies a single-container bundle (text-only or one
// partition of mixed mode) by decoding it and cross-checking the
// index's per-file SHA256 against the reconstructed bytes. In full
// mode, a decode failure is surfaced as HashMismatch: a tampered
// payload may corrupt structure before any hash is checked, and full
// verification should still classify that as a content integrity
// failure rather than a bare parse error.
func SingleBundle(bundle []byte, idx dirpack.BundleIndex, full bool) (*Report, error) {
	r := &Report{Mode: "light", OK: true}
	if full {
		r.Mode = "full"
	}

	info, err := decode.Decode(bundle)
	if err != nil {
		if full {
			r.fail(errs.NewHashMismatch("verify: bundle decode failed", err))
		} else {
			r.fail(err)
		}
		return r.finalize(), nil
	}

	for _, e := range idx.Entries {
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > int64(len(info.Data)) {
			r.fail(errs.NewCorruptPayload("verify: index entry out of range for \""+e.Rel+"\"", nil))
			continue
		}
		if !full {
			continue
		}
		sum := sha256.Sum256(info.Data[e.Offset : e.Offset+e.Length])
		if hex.EncodeToString(sum[:]) != e.SHA256 {
			r.fail(errs.NewHashMismatch("verify: sha256 mismatch for \""+e.Rel+"\"", nil))
		}
	}
	return r.finalize(), nil
}
