package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// NameSimilarity scores two normalized names in [0, 1] using token-based
// comparison. Token order is discarded before the edit-distance ratio so that
// "SILVA MARIA" and "MARIA SILVA" score as the same person, and the token
// overlap term keeps a missing middle name from dominating the distance.
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	overlap := tokenOverlap(ta, tb)
	ratio := levenshteinRatio(strings.Join(sortedTokens(ta), " "), strings.Join(sortedTokens(tb), " "))
	if overlap > ratio {
		return overlap
	}
	return ratio
}

// DocumentSimilarity is a tri-state: both documents present and equal scores
// 1, both present and different scores 0. Callers exclude the field entirely
// when either side is absent.
func DocumentSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// PhoneSimilarity is exact match on the canonical digit string.
func PhoneSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// AddressSimilarity is the token overlap of the two normalized addresses.
func AddressSimilarity(a, b string) float64 {
	return tokenOverlap(tokens(a), tokens(b))
}

func tokens(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// tokenOverlap is the Jaccard index of the two token sets.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(max)
}
