// Package dirpack implements the directory packer: walk + fingerprint
// + bucketize + per-bucket autopick with a TOP db cache, plus the
// single-container text-only and mixed modes.
package dirpack

import (
	"bytes"
	"encoding/json"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/layer"
	"github.com/gcomneno/onion-compressor-framework/internal/topdb"
)

// DirSpecSchema is the required `spec` discriminator.
const DirSpecSchema = "gcc-ocf.dir_pipeline.v1"

// PlanSpec is one candidate pipeline plan in a bucket type's pool.
type PlanSpec struct {
	Layer        string            `json:"layer"`
	Codec        string            `json:"codec,omitempty"`
	StreamCodecs map[string]string `json:"stream_codecs,omitempty"`
	Note         string            `json:"note,omitempty"`
}

// AutopickConfig controls per-bucket plan selection.
type AutopickConfig struct {
	Enabled    bool `json:"enabled"`
	SampleN    int  `json:"sample_n"`
	TopK       int  `json:"top_k"`
	TopDBMax   int  `json:"top_db_max"`
	RefreshTop bool `json:"refresh_top"`
}

// ResourceConfig toggles a named bucket-level shared resource.
type ResourceConfig struct {
	Enabled bool `json:"enabled"`
	K       int  `json:"k"`
}

// DirSpec is a parsed directory pipeline spec.
type DirSpec struct {
	SpecName       string                    `json:"spec"`
	Buckets        int                       `json:"buckets"`
	Archive        bool                      `json:"archive"`
	Autopick       AutopickConfig            `json:"autopick"`
	CandidatePools map[string][]PlanSpec     `json:"candidate_pools"`
	Resources      map[string]ResourceConfig `json:"resources"`
}

// ParseDirSpec validates and decodes a directory pipeline spec,
// rejecting unknown keys at every level and clamping top_k to 2, the
// only value autopick currently implements.
func ParseDirSpec(raw []byte) (*DirSpec, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var s DirSpec
	if err := dec.Decode(&s); err != nil {
		return nil, errs.NewUsageError("dirpack: invalid dir pipeline spec JSON", err)
	}
	if s.SpecName != DirSpecSchema {
		return nil, errs.NewUsageError("dirpack: unsupported spec schema \""+s.SpecName+"\"", nil)
	}
	if s.Buckets <= 0 {
		return nil, errs.NewUsageError("dirpack: buckets must be >= 1", nil)
	}
	if s.Autopick.Enabled && (s.Autopick.SampleN < 1 || s.Autopick.SampleN > 8) {
		return nil, errs.NewUsageError("dirpack: autopick.sample_n must be in [1..8]", nil)
	}
	s.Autopick.TopK = 2
	if s.Autopick.TopDBMax <= 0 {
		s.Autopick.TopDBMax = topdb.DefaultMax
	}
	if s.Autopick.SampleN <= 0 {
		s.Autopick.SampleN = 3
	}
	for bt, pool := range s.CandidatePools {
		if len(pool) == 0 {
			return nil, errs.NewUsageError("dirpack: empty candidate pool for bucket type \""+bt+"\"", nil)
		}
		for _, p := range pool {
			if _, ok := layer.ByName(p.Layer); !ok {
				return nil, errs.NewUsageError("dirpack: unknown layer \""+p.Layer+"\" in candidate pool", nil)
			}
		}
	}
	for name := range s.Resources {
		if name != "num_dict_v1" && name != "tpl_dict_v0" {
			return nil, errs.NewUsageError("dirpack: unknown resource id \""+name+"\"", nil)
		}
	}
	return &s, nil
}
