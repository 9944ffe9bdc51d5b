// Package match merges clusters whose keys differ but whose representative
// records are, with high confidence, the same person. This recovers document
// typos and duplicates logged under name-only keys.
package match

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"custreg/internal/config"
	"custreg/internal/domain"
	"custreg/internal/engine/cluster"
)

// Matcher scores cluster pairs on weighted field similarity and merges those
// crossing the high threshold. It assumes the engine configuration has
// already been validated.
type Matcher struct {
	weights    config.FieldWeights
	thresholds config.Thresholds
	workers    int
}

// NewMatcher creates a Matcher from validated engine configuration.
func NewMatcher(cfg *config.EngineConfig) *Matcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Matcher{weights: cfg.Weights, thresholds: cfg.Thresholds, workers: workers}
}

// pairScore is the outcome of scoring one cluster pair snapshot.
type pairScore struct {
	total  float64
	fields map[string]float64
}

// MatchAndMerge evaluates every candidate cluster pair, merges pairs at or
// above the high threshold, flags the medium band as needs_review, and
// returns one audit entry per accepted or flagged comparison.
//
// Pairwise scoring runs in parallel over immutable cluster snapshots taken
// before any merge. Merge application is sequential, in ascending creation
// index pair order, with union-find redirection, so the outcome does not
// depend on scoring completion order.
func (m *Matcher) MatchAndMerge(set *cluster.Set) []domain.MergeAudit {
	n := set.Len()
	if n < 2 {
		return nil
	}

	scores := m.scoreAllPairs(set)

	var audits []domain.MergeAudit
	seen := make(map[[2]int]bool)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := set.Find(i), set.Find(j)
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			pair := [2]int{a, b}
			if seen[pair] {
				continue
			}
			seen[pair] = true

			left, right := set.At(a), set.At(b)
			// A verified document match is definitive: two distinct
			// document-keyed clusters are never candidates for each other.
			if left.Key.Method == domain.KeyMethodDocument && right.Key.Method == domain.KeyMethodDocument {
				continue
			}

			ps, ok := scores[pair]
			if !ok || ps.total < m.thresholds.Medium {
				continue
			}

			winner, loser := left, right
			if right.Key.Method == domain.KeyMethodDocument {
				winner, loser = right, left
			}

			outcome := domain.MergeOutcomeNeedsReview
			if ps.total >= m.thresholds.High {
				outcome = domain.MergeOutcomeMerged
				set.Merge(winner.Index, loser.Index)
			}
			audits = append(audits, domain.MergeAudit{
				LeftKey:     winner.Key,
				RightKey:    loser.Key,
				Score:       ps.total,
				FieldScores: ps.fields,
				Outcome:     outcome,
			})
		}
	}
	return audits
}

// scoreAllPairs computes the weighted similarity for every cluster pair,
// keeping only scores that can influence a decision. Rows are fanned out
// across workers; every representative read is against the pre-merge
// snapshot.
func (m *Matcher) scoreAllPairs(set *cluster.Set) map[[2]int]pairScore {
	n := set.Len()
	reps := make([]*domain.NormalizedRecord, n)
	for i := 0; i < n; i++ {
		reps[i] = set.At(i).Representative()
	}

	scores := make(map[[2]int]pairScore)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i := 0; i < n-1; i++ {
		g.Go(func() error {
			local := make(map[[2]int]pairScore)
			for j := i + 1; j < n; j++ {
				if ps, ok := m.score(reps[i], reps[j]); ok && ps.total >= m.thresholds.Medium {
					local[[2]int{i, j}] = ps
				}
			}
			if len(local) > 0 {
				mu.Lock()
				for k, v := range local {
					scores[k] = v
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

// score computes the weighted similarity over the fields present in both
// records. Absent fields are excluded from the numerator and from the weight
// normalization, never penalized as zero. The second return is false when no
// weighted field is present on both sides.
func (m *Matcher) score(a, b *domain.NormalizedRecord) (pairScore, bool) {
	fields := make(map[string]float64, 4)
	var sum, weightSum float64

	add := func(name string, weight, sim float64) {
		fields[name] = sim
		sum += weight * sim
		weightSum += weight
	}

	if a.FullName != "" && b.FullName != "" {
		add("name", m.weights.Name, NameSimilarity(a.FullName, b.FullName))
	}
	if a.Document != "" && b.Document != "" {
		add("document", m.weights.Document, DocumentSimilarity(a.Document, b.Document))
	}
	if a.Phone != "" && b.Phone != "" {
		add("phone", m.weights.Phone, PhoneSimilarity(a.Phone, b.Phone))
	}
	if a.Address != "" && b.Address != "" {
		add("address", m.weights.Address, AddressSimilarity(a.Address, b.Address))
	}

	if weightSum == 0 {
		return pairScore{}, false
	}
	return pairScore{total: sum / weightSum, fields: fields}, true
}
