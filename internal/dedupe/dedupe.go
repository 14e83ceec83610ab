package dedupe

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// DefaultThreshold is the similarity at or above which two requirements are merged.
const DefaultThreshold = 0.92

// Deduplicator merges near-identical requirements, keeping the first occurrence.
type Deduplicator struct {
	threshold float64
	logger    *slog.Logger
}

// New returns a Deduplicator merging at threshold, which must be in (0, 1]. A nil logger
// falls back to slog.Default.
func New(threshold float64, logger *slog.Logger) (*Deduplicator, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: similarity threshold must be in (0, 1], got %v", common.ErrInvalidConfiguration, threshold)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{threshold: threshold, logger: logger}, nil
}

// Dedupe scans reqs in order. A requirement whose text scores >= threshold against an
// already kept one is folded into the first such match (page refs unioned); otherwise it
// is kept. The input slice is left untouched.
func (d *Deduplicator) Dedupe(reqs []entity.Requirement) []entity.Requirement {
	kept := make([]entity.Requirement, 0, len(reqs))
	merged := 0
	for _, r := range reqs {
		match := -1
		for i := range kept {
			if Similarity(r.Text, kept[i].Text) >= d.threshold {
				match = i
				break
			}
		}
		if match < 0 {
			r.PageRefs = UnionPageRefs(nil, r.PageRefs)
			kept = append(kept, r)
			continue
		}
		kept[match].PageRefs = UnionPageRefs(kept[match].PageRefs, r.PageRefs)
		merged++
		d.logger.Debug("dedupe.merge", "kept_id", kept[match].ID, "dropped_id", r.ID)
	}
	d.logger.Info("dedupe.ok", "in", len(reqs), "out", len(kept), "merged", merged)
	return kept
}

// UnionPageRefs returns the sorted set union of a and b in a fresh slice.
func UnionPageRefs(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
