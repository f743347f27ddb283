package dirpack

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/gcomneno/onion-compressor-framework/internal/codec"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/fingerprint"
	"github.com/gcomneno/onion-compressor-framework/internal/gca"
	"github.com/gcomneno/onion-compressor-framework/internal/layer"
	"github.com/gcomneno/onion-compressor-framework/internal/topdb"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// ManifestEntry maps one input file into its bucket archive location.
type ManifestEntry struct {
	BucketID      int    `json:"bucket_id"`
	Rel           string `json:"rel"`
	ArchiveOffset uint64 `json:"archive_offset"`
	ArchiveLength uint64 `json:"archive_length"`
	SHA256        string `json:"sha256"`
}

// BucketSummary records the winning plan and required shared resources
// for one bucket. The full plan (not just its note) is carried so that
// UnpackClassic can decode without needing the original dir spec.
type BucketSummary struct {
	BucketID          int               `json:"bucket_id"`
	BucketType        string            `json:"bucket_type"`
	Plan              PlanSpec          `json:"plan"`
	RequiredResources []string          `json:"required_resources,omitempty"`
}

// ClassicResult is what PackClassic produced on disk.
type ClassicResult struct {
	OutDir             string
	BucketPaths        map[int]string
	ManifestPath       string
	BucketSummaryPath  string
	ManifestEntries    []ManifestEntry
	BucketSummaries    []BucketSummary
}

// PackClassic implements the directory packer's classic (bucketed)
// mode: walk, fingerprint, bucketize, pick a plan per bucket (autopick
// with a TOP db cache, or the pool's first candidate), mine any shared
// resources the plan needs, and emit one GCA1 archive per bucket plus
// a manifest and bucket summary.
func PackClassic(root, outDir string, spec *DirSpec, topDBPath string, bz fingerprint.BucketizerFunc, log *slog.Logger) (*ClassicResult, error) {
	if log == nil {
		log = slog.Default()
	}
	entries, err := WalkFiles(root)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errs.NewUsageError("dirpack: no input files under "+root, nil)
	}
	buckets := Bucketize(entries, spec.Buckets, bz)

	var db *topdb.DB
	if spec.Autopick.Enabled {
		db, err = topdb.Load(topDBPath, spec.Autopick.TopDBMax)
		if err != nil {
			return nil, err
		}
	} else {
		db = topdb.New(spec.Autopick.TopDBMax)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "dirpack: mkdir output")
	}

	ids := make([]int, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := &ClassicResult{OutDir: outDir, BucketPaths: map[int]string{}}

	for _, id := range ids {
		files := buckets[id]
		bt, profile := BucketProfile(files)

		plan, fromCache, err := choosePlan(db, spec, files, bt, profile, log, id)
		if err != nil {
			return nil, err
		}
		if !fromCache && spec.Autopick.Enabled {
			db.Put(string(bt), profile, topdb.Plan{Layer: plan.Layer, Codec: plan.Codec, StreamCodecs: plan.StreamCodecs, Note: plan.Note})
		}

		rb, err := buildResources(files, plan, spec.Resources)
		if err != nil {
			return nil, err
		}

		bucketPath := filepath.Join(outDir, fmt.Sprintf("bucket_%d.gca", id))
		if err := writeBucketArchive(bucketPath, id, files, plan, rb, result); err != nil {
			return nil, err
		}

		var required []string
		if rb.hasNumDict {
			required = append(required, "num_dict_v1")
		}
		if rb.hasTplBase {
			required = append(required, "tpl_dict_v0")
		}
		result.BucketSummaries = append(result.BucketSummaries, BucketSummary{
			BucketID: id, BucketType: string(bt), Plan: plan, RequiredResources: required,
		})
	}

	manifestPath := filepath.Join(outDir, "manifest.jsonl")
	if err := writeJSONL(manifestPath, result.ManifestEntries); err != nil {
		return nil, err
	}
	result.ManifestPath = manifestPath

	summaryPath := filepath.Join(outDir, "bucket_summary.json")
	if err := writeJSON(summaryPath, result.BucketSummaries); err != nil {
		return nil, err
	}
	result.BucketSummaryPath = summaryPath

	if spec.Autopick.Enabled {
		if err := db.Save(topDBPath); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func choosePlan(db *topdb.DB, spec *DirSpec, files []FileEntry, bt fingerprint.BucketType, profile string, log *slog.Logger, bucketID int) (PlanSpec, bool, error) {
	if spec.Autopick.Enabled && !spec.Autopick.RefreshTop {
		if cached, ok := db.Lookup(string(bt), profile); ok {
			return PlanSpec{Layer: cached.Layer, Codec: cached.Codec, StreamCodecs: cached.StreamCodecs, Note: cached.Note}, true, nil
		}
	}
	pool := spec.CandidatePools[string(bt)]
	if len(pool) == 0 {
		return PlanSpec{}, false, errs.NewUsageError("dirpack: no candidate pool for bucket type \""+string(bt)+"\"", nil)
	}
	if !spec.Autopick.Enabled {
		return pool[0], false, nil
	}
	plan, err := Autopick(files, pool, spec.Autopick.SampleN)
	if err != nil {
		return PlanSpec{}, false, err
	}
	log.Info("dirpack autopick", "bucket", bucketID, "bucket_type", string(bt), "plan", plan.Note)
	return plan, false, nil
}

func writeBucketArchive(bucketPath string, id int, files []FileEntry, plan PlanSpec, rb resourceBundle, result *ClassicResult) error {
	f, err := os.Create(bucketPath)
	if err != nil {
		return errors.Wrap(err, "dirpack: create bucket archive")
	}
	defer f.Close()
	gw := gca.NewWriter(f)

	if rb.hasNumDict {
		if _, err := gw.AppendResource("num_dict_v1", varint.EncodeInts(rb.numDict), map[string]any{"tag": hex8(rb.numDictTag)}); err != nil {
			return err
		}
	}
	if rb.hasTplBase {
		if _, err := gw.AppendResource("tpl_dict_v0", layer.PackTemplates(rb.tplBase), map[string]any{"tag": hex8(rb.tplBaseTag)}); err != nil {
			return err
		}
	}

	for _, fe := range files {
		blob, err := compressFile(fe.Data, plan, rb)
		if err != nil {
			return errors.Wrap(err, "dirpack: compress "+fe.Rel)
		}
		sum := sha256.Sum256(fe.Data)
		ent, err := gw.Append(fe.Rel, blob, nil)
		if err != nil {
			return err
		}
		result.ManifestEntries = append(result.ManifestEntries, ManifestEntry{
			BucketID: id, Rel: fe.Rel, ArchiveOffset: ent.Offset, ArchiveLength: ent.Length,
			SHA256: hexEncodeBytes(sum[:]),
		})
	}
	if err := gw.Close(); err != nil {
		return err
	}
	result.BucketPaths[id] = bucketPath
	return nil
}

// UnpackClassic reverses PackClassic: it reads every bucket_N.gca file
// referenced by the manifest, loads each bucket's shared resources (if
// any), decompresses every member, and writes it back under outRoot at
// its original relative path.
func UnpackClassic(manifestPath string, bucketDir string, planByBucket map[int]PlanSpec, outRoot string) error {
	entries, err := readManifest(manifestPath)
	if err != nil {
		return err
	}
	byBucket := map[int][]ManifestEntry{}
	for _, e := range entries {
		byBucket[e.BucketID] = append(byBucket[e.BucketID], e)
	}

	for id, rows := range byBucket {
		plan, ok := planByBucket[id]
		if !ok {
			return errs.NewUsageError(fmt.Sprintf("dirpack: no plan given for bucket %d", id), nil)
		}
		bucketPath := filepath.Join(bucketDir, fmt.Sprintf("bucket_%d.gca", id))
		if err := unpackBucket(bucketPath, plan, rows, outRoot); err != nil {
			return err
		}
	}
	return nil
}

func unpackBucket(bucketPath string, plan PlanSpec, rows []ManifestEntry, outRoot string) error {
	f, err := os.Open(bucketPath)
	if err != nil {
		return errors.Wrap(err, "dirpack: open "+bucketPath)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "dirpack: stat "+bucketPath)
	}
	gr := gca.NewReader(f, st.Size())

	rb, err := loadResourceBundle(gr, plan)
	if err != nil {
		return err
	}

	for _, row := range rows {
		blob, err := gr.ReadBlob(row.ArchiveOffset, row.ArchiveLength)
		if err != nil {
			return err
		}
		data, err := decompressFile(blob, plan, rb)
		if err != nil {
			return errors.Wrap(err, "dirpack: decompress "+row.Rel)
		}
		outPath := filepath.Join(outRoot, filepath.FromSlash(row.Rel))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return errors.Wrap(err, "dirpack: mkdir "+filepath.Dir(outPath))
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return errors.Wrap(err, "dirpack: write "+outPath)
		}
	}
	return nil
}

func loadResourceBundle(gr *gca.Reader, plan PlanSpec) (resourceBundle, error) {
	var rb resourceBundle
	resources, err := gr.LoadResources()
	if err != nil {
		return rb, err
	}
	if r, ok := resources["num_dict_v1"]; ok {
		dict, err := varint.DecodeInts(r.Blob)
		if err != nil {
			return rb, errors.Wrap(err, "dirpack: decode num_dict_v1 resource")
		}
		rb.hasNumDict = true
		rb.numDict = dict
		rb.numDictTag = codec.DictTag8(dict)
	}
	if r, ok := resources["tpl_dict_v0"]; ok {
		base, err := layer.UnpackTemplates(r.Blob)
		if err != nil {
			return rb, errors.Wrap(err, "dirpack: decode tpl_dict_v0 resource")
		}
		rb.hasTplBase = true
		rb.tplBase = base
		rb.tplBaseTag = layer.TemplateDictTag8(base)
	}
	return rb, nil
}
