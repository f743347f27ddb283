package dirpack

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/gcomneno/onion-compressor-framework/internal/fingerprint"
)

// FileEntry is one walked input file: its slash-form relative path,
// content, and precomputed fingerprint/classification.
type FileEntry struct {
	Rel   string
	Abs   string
	Data  []byte
	Sig   uint64
	BType fingerprint.BucketType
}

// WalkFiles walks root deterministically (lexicographic by relative
// path) and reads every regular file, computing its fingerprint and
// bucket-type classification.
func WalkFiles(root string) ([]FileEntry, error) {
	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "dirpack: walk failed")
	}
	sort.Strings(rels)

	entries := make([]FileEntry, 0, len(rels))
	for _, rel := range rels {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, errors.Wrap(err, "dirpack: read "+rel)
		}
		entries = append(entries, FileEntry{
			Rel:   rel,
			Abs:   abs,
			Data:  data,
			Sig:   fingerprint.Signature(data),
			BType: fingerprint.Classify(data),
		})
	}
	return entries, nil
}

// Bucketize groups files by bz(sig, n), defaulting to
// fingerprint.DefaultBucketizer.
func Bucketize(entries []FileEntry, n int, bz fingerprint.BucketizerFunc) map[int][]FileEntry {
	if bz == nil {
		bz = fingerprint.DefaultBucketizer
	}
	out := map[int][]FileEntry{}
	for _, e := range entries {
		id := bz(e.Sig, n)
		out[id] = append(out[id], e)
	}
	for id := range out {
		sort.Slice(out[id], func(i, j int) bool { return out[id][i].Rel < out[id][j].Rel })
	}
	return out
}

// BucketProfile summarizes a bucket for the TOP db cache key: the
// majority BucketType among its files (ties broken textish >
// mixed_text_nums > binaryish), plus a digit-density profile computed
// on its lexicographically-first file for determinism.
func BucketProfile(files []FileEntry) (fingerprint.BucketType, string) {
	if len(files) == 0 {
		return fingerprint.Textish, fingerprint.Profile(fingerprint.Textish, nil)
	}
	counts := map[fingerprint.BucketType]int{}
	for _, f := range files {
		counts[f.BType]++
	}
	order := []fingerprint.BucketType{fingerprint.Textish, fingerprint.MixedTextNums, fingerprint.Binaryish}
	best, bestN := order[0], -1
	for _, bt := range order {
		if counts[bt] > bestN {
			best, bestN = bt, counts[bt]
		}
	}
	return best, fingerprint.Profile(best, files[0].Data)
}
