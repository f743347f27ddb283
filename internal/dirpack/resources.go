package dirpack

import (
	"sort"

	"github.com/gcomneno/onion-compressor-framework/internal/codec"
	"github.com/gcomneno/onion-compressor-framework/internal/layer"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// resourceBundle holds the bucket-level shared state a plan may need,
// built once per bucket from a sample of its files.
type resourceBundle struct {
	hasNumDict bool
	numDict    []int64
	numDictTag [8]byte

	hasTplBase bool
	tplBase    [][][]byte
	tplBaseTag [8]byte
}

const defaultResourceK = 64

// buildResources inspects the winning plan and, when the matching
// resource is enabled in the dir pipeline spec, mines a shared
// dictionary from the bucket's files.
func buildResources(files []FileEntry, plan PlanSpec, cfg map[string]ResourceConfig) (resourceBundle, error) {
	var rb resourceBundle

	if plan.Layer == "tpl_lines_shared_v0" {
		if rc, ok := cfg["tpl_dict_v0"]; ok && rc.Enabled {
			k := rc.K
			if k <= 0 {
				k = defaultResourceK
			}
			base, err := mineTplDict(files, k)
			if err != nil {
				return rb, err
			}
			if len(base) > 0 {
				rb.hasTplBase = true
				rb.tplBase = base
				rb.tplBaseTag = layer.TemplateDictTag8(base)
			}
		}
	}

	if plan.Layer == "split_text_nums" && streamCodecFor(plan, "NUMS") == "num_v1" {
		if rc, ok := cfg["num_dict_v1"]; ok && rc.Enabled {
			k := rc.K
			if k <= 0 {
				k = defaultResourceK
			}
			dict, err := mineNumDict(files, k)
			if err != nil {
				return rb, err
			}
			if len(dict) > 0 {
				rb.hasNumDict = true
				rb.numDict = dict
				rb.numDictTag = codec.DictTag8(dict)
			}
		}
	}

	return rb, nil
}

func streamCodecFor(plan PlanSpec, stream string) string {
	if plan.StreamCodecs != nil {
		if c, ok := plan.StreamCodecs[stream]; ok {
			return c
		}
	}
	if plan.Codec != "" {
		return plan.Codec
	}
	return "zlib"
}

// mineNumDict collects every parsed integer across files, ranks by
// (frequency desc, magnitude asc, value asc) exactly as
// NumV1Codec.Compress ranks its own per-call MODE_DICT candidates, and
// keeps the top k as the bucket-level shared dictionary.
func mineNumDict(files []FileEntry, k int) ([]int64, error) {
	L := layer.SplitTextNumsLayer{}
	freq := map[int64]int{}
	for _, fe := range files {
		res, err := L.Encode(fe.Data)
		if err != nil {
			continue
		}
		ints, err := varint.DecodeInts(res.Streams[mbn.StypeNums])
		if err != nil {
			continue
		}
		for _, n := range ints {
			freq[n]++
		}
	}
	if len(freq) == 0 {
		return nil, nil
	}
	uniq := make([]int64, 0, len(freq))
	for v := range freq {
		uniq = append(uniq, v)
	}
	sort.Slice(uniq, func(i, j int) bool {
		if freq[uniq[i]] != freq[uniq[j]] {
			return freq[uniq[i]] > freq[uniq[j]]
		}
		ai, aj := abs64(uniq[i]), abs64(uniq[j])
		if ai != aj {
			return ai < aj
		}
		return uniq[i] < uniq[j]
	})
	if len(uniq) > k {
		uniq = uniq[:k]
	}
	return uniq, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// mineTplDict collects every per-line template across files, ranks by
// frequency (ties broken by the template's packed byte encoding, for
// determinism), and keeps the top k as the bucket-level shared base.
func mineTplDict(files []FileEntry, k int) ([][][]byte, error) {
	L := layer.TplLinesV0Layer{}
	freq := map[string]int{}
	byKey := map[string][][]byte{}
	for _, fe := range files {
		res, err := L.Encode(fe.Data)
		if err != nil {
			continue
		}
		tpls, err := layer.UnpackTemplates(res.Streams[mbn.StypeTpl])
		if err != nil {
			continue
		}
		for _, t := range tpls {
			key := string(layer.PackTemplates([][][]byte{t}))
			freq[key]++
			if _, ok := byKey[key]; !ok {
				byKey[key] = t
			}
		}
	}
	if len(freq) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(freq))
	for key := range freq {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	base := make([][][]byte, 0, len(keys))
	for _, key := range keys {
		base = append(base, byKey[key])
	}
	return base, nil
}
