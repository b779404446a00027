// Package matcher finds the best gallery identity for a query embedding.
package matcher

import (
	"math"

	"github.com/kozaktomas/face-match/internal/constants"
	"github.com/kozaktomas/face-match/internal/gallery"
)

// EuclideanDistance computes the Euclidean distance between two vectors.
// Returns +Inf for mismatched or empty input so bad vectors can never win.
// The metric is fixed: it must match what the embedding model was trained
// against, so it is not a per-call choice.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Confidence converts a match distance to a human-facing percentage.
func Confidence(distance float64) float64 {
	return math.Max(0, 1.0-distance) * 100
}

// Match is the outcome of matching one query embedding against the gallery.
// Distance always carries the global minimum, so callers can inspect how
// close the nearest miss was even when Matched is false.
type Match struct {
	IdentityID string
	Distance   float64
	Matched    bool
}

// Matcher matches query embeddings against gallery snapshots under a
// configured distance threshold.
type Matcher struct {
	threshold float64
}

// New creates a matcher with the given acceptance threshold.
func New(threshold float64) *Matcher {
	return &Matcher{threshold: threshold}
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match finds the identity whose closest reference is nearest to the query.
// An identity matches through its closest reference, not an average, which
// tolerates pose and lighting variance in reference sets. Ties resolve by
// gallery registration order, which the snapshot preserves deterministically.
func (m *Matcher) Match(query []float32, snap *gallery.Snapshot) Match {
	if snap.ReferenceCount() >= constants.HNSWMinReferences {
		if shortlist, ok := m.shortlist(query, snap); ok {
			return m.scan(query, snap, shortlist)
		}
	}
	return m.scan(query, snap, nil)
}

// shortlist collects candidate identity ids from the ANN index. Exact
// distances are recomputed by scan; the index only narrows the field.
func (m *Matcher) shortlist(query []float32, snap *gallery.Snapshot) (map[string]bool, bool) {
	hits, ok := snap.Nearest(query, constants.HNSWShortlistSize)
	if !ok || len(hits) == 0 {
		return nil, false
	}
	candidates := make(map[string]bool, len(hits))
	for _, h := range hits {
		candidates[h.IdentityID] = true
	}
	return candidates, true
}

// scan walks identities in registration order keeping the global minimum.
// A nil candidate set means scan everything.
func (m *Matcher) scan(query []float32, snap *gallery.Snapshot, candidates map[string]bool) Match {
	best := Match{Distance: math.Inf(1)}

	for identity := range snap.All() {
		if candidates != nil && !candidates[identity.ID] {
			continue
		}
		for _, ref := range identity.References {
			if d := EuclideanDistance(query, ref); d < best.Distance {
				best.Distance = d
				best.IdentityID = identity.ID
			}
		}
	}

	if best.IdentityID != "" && best.Distance <= m.threshold {
		best.Matched = true
	} else {
		best.IdentityID = ""
	}
	return best
}
