package dirpack

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// readVarintPrefix decodes the leading varint(ulen) that the pipeline
// engine prefixes onto a non-MBN single-stream payload, mirroring
// container.decodeV6Payload for dirpack's own resource-aware decode
// path.
func readVarintPrefix(payload []byte) (int, int, error) {
	v, n, err := varint.Get(payload)
	if err != nil {
		return 0, 0, err
	}
	return int(v), n, nil
}

func hex8(tag [8]byte) string { return hex.EncodeToString(tag[:]) }

func hexEncodeBytes(b []byte) string { return hex.EncodeToString(b) }

// ReadBucketSummary loads a bucket_summary.json written by PackClassic.
func ReadBucketSummary(path string) ([]BucketSummary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "dirpack: read "+path)
	}
	var out []BucketSummary
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "dirpack: invalid bucket summary JSON")
	}
	return out, nil
}

// PlanByBucket indexes a bucket summary list by bucket id, for feeding
// UnpackClassic without re-running autopick.
func PlanByBucket(summaries []BucketSummary) map[int]PlanSpec {
	out := make(map[int]PlanSpec, len(summaries))
	for _, s := range summaries {
		out[s.BucketID] = s.Plan
	}
	return out
}

func writeJSON(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "dirpack: marshal json")
	}
	if err := os.WriteFile(path, append(buf, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "dirpack: write "+path)
	}
	return nil
}

func readManifest(path string) ([]ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dirpack: open "+path)
	}
	defer f.Close()
	var out []ManifestEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e ManifestEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, errors.Wrap(err, "dirpack: invalid manifest line")
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "dirpack: scan "+path)
	}
	return out, nil
}

func writeJSONL[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "dirpack: create "+path)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, "dirpack: encode manifest row")
		}
	}
	return nil
}
