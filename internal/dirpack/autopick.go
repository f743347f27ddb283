package dirpack

import (
	"sort"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/pipeline"
)

// candidateScore is one pool member's total compressed size on the
// sample, kept alongside the plan for the deterministic tie-break.
type candidateScore struct {
	plan  PlanSpec
	total int
}

// Autopick compresses sample_n files (the bucket's lexicographically
// first files, for determinism) with every candidate plan and returns
// the winner: lowest total compressed size, ties broken by plan note
// lexicographically.
func Autopick(files []FileEntry, pool []PlanSpec, sampleN int) (PlanSpec, error) {
	n := sampleN
	if n > len(files) {
		n = len(files)
	}
	sample := files[:n]

	var scored []candidateScore
	for _, p := range pool {
		spec := &pipeline.Spec{SpecName: pipeline.SpecSchema, Layer: p.Layer, Codec: p.Codec, StreamCodecs: p.StreamCodecs}
		total := 0
		ok := true
		for _, f := range sample {
			out, err := pipeline.Compress(f.Data, spec)
			if err != nil {
				ok = false
				break
			}
			total += len(out)
		}
		if ok {
			scored = append(scored, candidateScore{plan: p, total: total})
		}
	}
	if len(scored) == 0 {
		return PlanSpec{}, errs.NewUsageError("dirpack: no candidate plan in pool compressed the sample", nil)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].total != scored[j].total {
			return scored[i].total < scored[j].total
		}
		return scored[i].plan.Note < scored[j].plan.Note
	})
	// TopK is clamped to exactly 2; only the single best-scoring plan is
	// ever used to encode the bucket, the runner-up exists purely as the
	// cache's documented shortlist size.
	return scored[0].plan, nil
}
