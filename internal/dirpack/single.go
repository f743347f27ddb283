package dirpack

import (
	"crypto/sha256"
	"sort"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/gcomneno/onion-compressor-framework/internal/decode"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/pipeline"
)

// BundleIndexSchema is the single-container index's `schema` field.
const BundleIndexSchema = "gcc-ocf.dir_bundle_index.v1"

// BundleIndexEntry records where one input file's bytes landed inside
// the decompressed concat stream.
type BundleIndexEntry struct {
	Rel    string `json:"rel"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
	SHA256 string `json:"sha256"`
}

// BundleIndex is bundle_index.json's top-level shape.
type BundleIndex struct {
	Schema  string              `json:"schema"`
	Entries []BundleIndexEntry `json:"entries"`
}

// textOnlyPipelineSpec is the fixed pipeline for single-container
// text-only mode: split_text_nums framed as an MBN bundle with TEXT
// compressed via zlib and NUMS via num_v1.
func textOnlyPipelineSpec() *pipeline.Spec {
	mbnOn := true
	return &pipeline.Spec{
		SpecName:     pipeline.SpecSchema,
		Layer:        "split_text_nums",
		StreamCodecs: map[string]string{"TEXT": "zlib", "NUMS": "num_v1"},
		MBN:          &mbnOn,
	}
}

// binPipelineSpec is the fixed pipeline for the mixed mode's binary
// bundle: the bytes layer under zstd. klauspost/compress/zstd is always
// linked in this module, so there is no zlib fallback path.
func binPipelineSpec() *pipeline.Spec {
	return &pipeline.Spec{SpecName: pipeline.SpecSchema, Layer: "bytes", Codec: "zstd"}
}

func concatDeterministic(files []FileEntry) ([]byte, []BundleIndexEntry) {
	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rel < sorted[j].Rel })

	var buf []byte
	entries := make([]BundleIndexEntry, 0, len(sorted))
	for _, fe := range sorted {
		off := int64(len(buf))
		buf = append(buf, fe.Data...)
		sum := sha256.Sum256(fe.Data)
		entries = append(entries, BundleIndexEntry{
			Rel: fe.Rel, Offset: off, Length: int64(len(fe.Data)), SHA256: hexEncodeBytes(sum[:]),
		})
	}
	return buf, entries
}

// SingleTextResult is what PackSingleTextOnly produced.
type SingleTextResult struct {
	Bundle []byte
	Index  BundleIndex
}

// PackSingleTextOnly implements the single-container text-only mode:
// every input must be valid UTF-8 or the whole pack fails fast with a
// usage error, files are concatenated in deterministic order, and the
// concat stream is compressed with the fixed split_text_nums+MBN
// pipeline.
func PackSingleTextOnly(root string) (*SingleTextResult, error) {
	files, err := WalkFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errs.NewUsageError("dirpack: no input files under "+root, nil)
	}
	for _, fe := range files {
		if !utf8.Valid(fe.Data) {
			return nil, errs.NewUsageError("dirpack: text-only mode refuses non-UTF-8 file \""+fe.Rel+"\"", nil)
		}
	}

	concat, entries := concatDeterministic(files)
	bundle, err := pipeline.Compress(concat, textOnlyPipelineSpec())
	if err != nil {
		return nil, err
	}
	return &SingleTextResult{Bundle: bundle, Index: BundleIndex{Schema: BundleIndexSchema, Entries: entries}}, nil
}

// UnpackSingleTextOnly reconstructs the original concat stream from a
// bundle produced by PackSingleTextOnly and slices it back into
// per-file bytes keyed by the index's rel paths.
func UnpackSingleTextOnly(bundle []byte, idx BundleIndex) (map[string][]byte, error) {
	info, err := decode.Decode(bundle)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(idx.Entries))
	for _, e := range idx.Entries {
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > int64(len(info.Data)) {
			return nil, errs.NewCorruptPayload("dirpack: bundle index entry out of range for \""+e.Rel+"\"", nil)
		}
		out[e.Rel] = info.Data[e.Offset : e.Offset+e.Length]
	}
	return out, nil
}

// SingleMixedResult is what PackSingleMixed produced: two independent
// bundles, one per partition, each with its own index.
type SingleMixedResult struct {
	Text *SingleTextResult
	Bin  *SingleTextResult
}

// PackSingleMixed implements single-container mixed mode: partition
// files into TEXT/BIN sets by UTF-8 validity and pack each set as its
// own bundle, TEXT via split_text_nums+MBN and BIN via the bytes layer
// under zstd.
func PackSingleMixed(root string) (*SingleMixedResult, error) {
	files, err := WalkFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errs.NewUsageError("dirpack: no input files under "+root, nil)
	}

	var textFiles, binFiles []FileEntry
	for _, fe := range files {
		if utf8.Valid(fe.Data) {
			textFiles = append(textFiles, fe)
		} else {
			binFiles = append(binFiles, fe)
		}
	}

	res := &SingleMixedResult{}
	if len(textFiles) > 0 {
		concat, entries := concatDeterministic(textFiles)
		bundle, err := pipeline.Compress(concat, textOnlyPipelineSpec())
		if err != nil {
			return nil, errors.Wrap(err, "dirpack: pack text partition")
		}
		res.Text = &SingleTextResult{Bundle: bundle, Index: BundleIndex{Schema: BundleIndexSchema, Entries: entries}}
	}
	if len(binFiles) > 0 {
		concat, entries := concatDeterministic(binFiles)
		bundle, err := pipeline.Compress(concat, binPipelineSpec())
		if err != nil {
			return nil, errors.Wrap(err, "dirpack: pack binary partition")
		}
		res.Bin = &SingleTextResult{Bundle: bundle, Index: BundleIndex{Schema: BundleIndexSchema, Entries: entries}}
	}
	return res, nil
}

// UnpackSingleMixed is PackSingleMixed's inverse, merging both
// partitions' files back into one rel-keyed map.
func UnpackSingleMixed(res *SingleMixedResult) (map[string][]byte, error) {
	out := map[string][]byte{}
	if res.Text != nil {
		m, err := UnpackSingleTextOnly(res.Text.Bundle, res.Text.Index)
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			out[k] = v
		}
	}
	if res.Bin != nil {
		m, err := UnpackSingleTextOnly(res.Bin.Bundle, res.Bin.Index)
		if err != nil {
			return nil, errs.NewHashMismatch("dirpack: binary partition decode failed", err)
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}
