// Package cluster groups normalized records into working clusters: first by
// byte-equal identity key, then by union-find merges driven by the fuzzy
// matcher. Grouping is pure set semantics, so the partition is the same for
// any ordering of the input.
package cluster

import (
	"sort"

	"custreg/internal/domain"
)

// Member pairs a normalized record with its derived identity key.
type Member struct {
	Record domain.NormalizedRecord
	Key    domain.IdentityKey
}

// Cluster is a mutable set of records provisionally believed to represent one
// person. Created one-per-distinct-key, mutated only by union-find merges,
// frozen once handed to the merge resolver.
type Cluster struct {
	Index   int                // creation index, ascending by MinSeq
	Key     domain.IdentityKey // representative key
	Members []Member           // ascending by record sequence number
	MinSeq  int64              // minimum input sequence number among members
}

// Representative returns the member record used for pairwise scoring: the
// most complete one, ties broken by lowest sequence number. Members are kept
// sorted by sequence, so the first maximal member wins deterministically.
func (c *Cluster) Representative() *domain.NormalizedRecord {
	best := 0
	for i := 1; i < len(c.Members); i++ {
		if c.Members[i].Record.Completeness() > c.Members[best].Record.Completeness() {
			best = i
		}
	}
	return &c.Members[best].Record
}

// Set holds the cluster population for one run together with the union-find
// parent table the fuzzy matcher mutates.
type Set struct {
	clusters []*Cluster
	parent   []int
}

// Build partitions the full member population into initial clusters such that
// two records share a cluster iff their identity keys are byte-equal,
// including method. Creation indexes are assigned ascending by the cluster's
// minimum input sequence number, which fixes the pair evaluation order
// downstream.
func Build(members []Member) *Set {
	byKey := make(map[string]*Cluster)
	for _, m := range members {
		k := m.Key.String()
		c, ok := byKey[k]
		if !ok {
			c = &Cluster{Key: m.Key, MinSeq: m.Record.Raw.Seq}
			byKey[k] = c
		}
		c.Members = append(c.Members, m)
		if m.Record.Raw.Seq < c.MinSeq {
			c.MinSeq = m.Record.Raw.Seq
		}
	}

	clusters := make([]*Cluster, 0, len(byKey))
	for _, c := range byKey {
		sort.Slice(c.Members, func(i, j int) bool {
			return c.Members[i].Record.Raw.Seq < c.Members[j].Record.Raw.Seq
		})
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].MinSeq < clusters[j].MinSeq })

	s := &Set{clusters: clusters, parent: make([]int, len(clusters))}
	for i, c := range clusters {
		c.Index = i
		s.parent[i] = i
	}
	return s
}

// Len returns the number of initial clusters, merged or not.
func (s *Set) Len() int { return len(s.clusters) }

// At returns the cluster created with the given index.
func (s *Set) At(index int) *Cluster { return s.clusters[index] }

// Find resolves a creation index to the index of the cluster currently
// holding its records, with path compression.
func (s *Set) Find(index int) int {
	for s.parent[index] != index {
		s.parent[index] = s.parent[s.parent[index]]
		index = s.parent[index]
	}
	return index
}

// Merge absorbs the loser cluster into the winner. The winner keeps its key
// and creation index; the loser's members are folded in and it stops being a
// distinct cluster for all later comparisons.
func (s *Set) Merge(winner, loser int) {
	winner, loser = s.Find(winner), s.Find(loser)
	if winner == loser {
		return
	}
	w, l := s.clusters[winner], s.clusters[loser]
	w.Members = append(w.Members, l.Members...)
	sort.Slice(w.Members, func(i, j int) bool {
		return w.Members[i].Record.Raw.Seq < w.Members[j].Record.Raw.Seq
	})
	if l.MinSeq < w.MinSeq {
		w.MinSeq = l.MinSeq
	}
	s.parent[loser] = winner
}

// Active returns the surviving clusters in creation index order.
func (s *Set) Active() []*Cluster {
	var out []*Cluster
	for i, c := range s.clusters {
		if s.Find(i) == i {
			out = append(out, c)
		}
	}
	return out
}
