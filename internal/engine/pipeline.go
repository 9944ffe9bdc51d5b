// Package engine runs the identity resolution pipeline: normalize, derive
// keys, cluster exactly, merge fuzzily, resolve canonically, and project the
// four output artifacts. Stages run strictly in sequence — merge decisions
// must see the whole candidate population to be deterministic — while the
// record-local stages fan out across workers.
package engine

import (
	"log"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"custreg/internal/config"
	"custreg/internal/domain"
	"custreg/internal/engine/cluster"
	"custreg/internal/engine/identity"
	"custreg/internal/engine/match"
	"custreg/internal/engine/normalize"
	"custreg/internal/engine/resolve"
)

// Pipeline is one configured identity resolution engine. It holds no per-run
// state: every Run owns its own cluster map and audit list, so concurrent or
// repeated runs cannot leak state into each other.
type Pipeline struct {
	cfg        *config.EngineConfig
	normalizer *normalize.Normalizer
	matcher    *match.Matcher
	workers    int
}

// New validates the engine configuration and constructs a Pipeline. A
// malformed configuration is rejected here, before any record is processed.
func New(cfg *config.EngineConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{
		cfg:        cfg,
		normalizer: normalize.NewNormalizer(cfg),
		matcher:    match.NewMatcher(cfg),
		workers:    workers,
	}, nil
}

// Run executes the full batch pipeline over the complete input population.
// It either returns the four-artifact result plus the per-record degradations
// encountered, or fails outright; it never emits a partial registry.
func (p *Pipeline) Run(records []domain.RawRecord) (*domain.RunResult, error) {
	members, issues := p.normalizeAll(records)

	set := cluster.Build(members)
	log.Printf("engine.Pipeline: %d records grouped into %d exact clusters", len(records), set.Len())

	audits := p.matcher.MatchAndMerge(set)

	final := set.Active()
	entities, lineage := resolve.AssignEntities(final)
	log.Printf("engine.Pipeline: %d clusters after fuzzy merge, %d merge audits", len(final), len(audits))

	if err := verifyLineage(records, lineage); err != nil {
		return nil, err
	}

	result := &domain.RunResult{
		RunID:    uuid.New(),
		Entities: entities,
		Lineage:  lineage,
		Audits:   audits,
		Summary:  buildSummary(records, members, entities, audits, issues),
		Issues:   issues,
	}
	return result, nil
}

// normalizeAll runs stages one and two — normalization and key derivation —
// across workers. Both stages are pure and record-local; results land at the
// record's own index, so worker completion order is irrelevant.
func (p *Pipeline) normalizeAll(records []domain.RawRecord) ([]cluster.Member, []domain.DataIssue) {
	members := make([]cluster.Member, len(records))
	issuesPer := make([][]domain.DataIssue, len(records))

	var g errgroup.Group
	g.SetLimit(p.workers)
	chunk := (len(records) + p.workers - 1) / p.workers
	for start := 0; start < len(records); start += chunk {
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				rec, recIssues := p.normalizer.Normalize(&records[i])
				members[i] = cluster.Member{Record: rec, Key: identity.DeriveKey(&rec)}
				issuesPer[i] = recIssues
			}
			return nil
		})
	}
	_ = g.Wait()

	var issues []domain.DataIssue
	for _, per := range issuesPer {
		issues = append(issues, per...)
	}
	return members, issues
}

// verifyLineage checks the stage contract: every input record maps to exactly
// one entity. A violation aborts the run with the offending sequence number.
func verifyLineage(records []domain.RawRecord, lineage []domain.LineageRow) error {
	assigned := make(map[int64]int, len(lineage))
	for _, row := range lineage {
		assigned[row.Seq]++
	}
	for i := range records {
		switch n := assigned[records[i].Seq]; {
		case n == 0:
			return &domain.IntegrityError{Seq: records[i].Seq, Detail: "record has no assigned cluster"}
		case n > 1:
			return &domain.IntegrityError{Seq: records[i].Seq, Detail: "record assigned to multiple entities"}
		}
	}
	if len(lineage) != len(records) {
		return &domain.IntegrityError{Seq: -1, Detail: "lineage row count does not match input record count"}
	}
	return nil
}

func buildSummary(
	records []domain.RawRecord,
	members []cluster.Member,
	entities []domain.CanonicalEntity,
	audits []domain.MergeAudit,
	issues []domain.DataIssue,
) domain.RunSummary {
	s := domain.RunSummary{
		InputRecords:    len(records),
		Entities:        len(entities),
		KeyMethodCounts: make(map[domain.KeyMethod]int),
		MergesByMethod:  make(map[domain.KeyMethod]int),
		IssueCounts:     make(map[domain.IssueKind]int),
	}
	for i := range members {
		s.KeyMethodCounts[members[i].Key.Method]++
	}
	for _, a := range audits {
		switch a.Outcome {
		case domain.MergeOutcomeMerged:
			// The right key belongs to the absorbed cluster.
			s.MergesByMethod[a.RightKey.Method]++
		case domain.MergeOutcomeNeedsReview:
			s.NeedsReview++
		}
	}
	for _, issue := range issues {
		s.IssueCounts[issue.Kind]++
	}
	return s
}
