// Package resolve collapses final clusters into canonical entities. Field
// conflicts are resolved independently per field: an entity's name may come
// from one contributing record and its address from another.
package resolve

import (
	"sort"
	"time"

	"custreg/internal/domain"
	"custreg/internal/engine/cluster"
)

// AssignEntities resolves every final cluster and assigns entity IDs in a
// single deterministic pass: clusters are ordered by the minimum input
// sequence number among their contributing records, so the same input always
// yields the same ID assignment.
func AssignEntities(clusters []*cluster.Cluster) ([]domain.CanonicalEntity, []domain.LineageRow) {
	ordered := make([]*cluster.Cluster, len(clusters))
	copy(ordered, clusters)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MinSeq < ordered[j].MinSeq })

	entities := make([]domain.CanonicalEntity, 0, len(ordered))
	var lineage []domain.LineageRow
	for i, c := range ordered {
		e := Resolve(c)
		e.EntityID = int64(i + 1)
		for _, seq := range e.RecordSeqs {
			lineage = append(lineage, domain.LineageRow{Seq: seq, EntityID: e.EntityID})
		}
		entities = append(entities, e)
	}

	sort.Slice(lineage, func(i, j int) bool { return lineage[i].Seq < lineage[j].Seq })
	return entities, lineage
}

// Resolve collapses one frozen cluster into a canonical entity. The entity ID
// is left unassigned.
func Resolve(c *cluster.Cluster) domain.CanonicalEntity {
	e := domain.CanonicalEntity{
		KeyMethod:               c.Key.Method,
		KeyValue:                c.Key.Value,
		Document:                resolveField(c, func(r *domain.NormalizedRecord) string { return r.Document }),
		FullName:                resolveField(c, func(r *domain.NormalizedRecord) string { return r.FullName }),
		Phone:                   resolveField(c, func(r *domain.NormalizedRecord) string { return r.Phone }),
		Email:                   resolveField(c, func(r *domain.NormalizedRecord) string { return r.Email }),
		Address:                 resolveField(c, func(r *domain.NormalizedRecord) string { return r.Address }),
		BirthDate:               resolveField(c, func(r *domain.NormalizedRecord) string { return r.BirthDate }),
		ContributingRecordCount: len(c.Members),
	}

	stores := make(map[string]struct{})
	for _, m := range c.Members {
		e.RecordSeqs = append(e.RecordSeqs, m.Record.Raw.Seq)
		if m.Record.Raw.SourceStore != "" {
			stores[m.Record.Raw.SourceStore] = struct{}{}
		}
	}
	sort.Slice(e.RecordSeqs, func(i, j int) bool { return e.RecordSeqs[i] < e.RecordSeqs[j] })
	for s := range stores {
		e.SourceStores = append(e.SourceStores, s)
	}
	sort.Strings(e.SourceStores)
	return e
}

// candidate accumulates the resolution signals for one distinct field value.
type candidate struct {
	value        string
	completeness int       // best completeness among records carrying the value
	sources      int       // distinct sources that carried the value
	latest       time.Time // most recent source date
	maxSeq       int64
}

// resolveField picks one value for a single field. Policy: prefer the value
// from the most complete contributing record, then the value seen in the most
// sources, then the most recently dated source record. Remaining ties fall to
// the highest sequence number, then lexicographic order, keeping resolution
// total and deterministic.
func resolveField(c *cluster.Cluster, get func(*domain.NormalizedRecord) string) string {
	byValue := make(map[string]*candidate)
	sourcesByValue := make(map[string]map[string]struct{})

	for i := range c.Members {
		rec := &c.Members[i].Record
		v := get(rec)
		if v == "" {
			continue
		}
		cand, ok := byValue[v]
		if !ok {
			cand = &candidate{value: v}
			byValue[v] = cand
			sourcesByValue[v] = make(map[string]struct{})
		}
		if comp := rec.Completeness(); comp > cand.completeness {
			cand.completeness = comp
		}
		sourcesByValue[v][rec.Raw.SourceStore+"\x1f"+rec.Raw.SourceFile] = struct{}{}
		if rec.Raw.SourceDate.After(cand.latest) {
			cand.latest = rec.Raw.SourceDate
		}
		if rec.Raw.Seq > cand.maxSeq {
			cand.maxSeq = rec.Raw.Seq
		}
	}
	if len(byValue) == 0 {
		return ""
	}

	cands := make([]*candidate, 0, len(byValue))
	for v, cand := range byValue {
		cand.sources = len(sourcesByValue[v])
		cands = append(cands, cand)
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.completeness != b.completeness {
			return a.completeness > b.completeness
		}
		if a.sources != b.sources {
			return a.sources > b.sources
		}
		if !a.latest.Equal(b.latest) {
			return a.latest.After(b.latest)
		}
		if a.maxSeq != b.maxSeq {
			return a.maxSeq > b.maxSeq
		}
		return a.value < b.value
	})
	return cands[0].value
}
