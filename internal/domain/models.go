package domain

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord is one row from a source extraction: free-form, source-specific
// column names mapped to raw cell values. The sequence number is assigned by
// the ingestion collaborator and is monotonic across the whole run.
type RawRecord struct {
	Seq         int64             `json:"seq"`
	SourceStore string            `json:"source_store"`
	SourceFile  string            `json:"source_file"`
	SourceDate  time.Time         `json:"source_date"` // export date tag; zero when unknown
	Fields      map[string]string `json:"fields"`
}

// NormalizedRecord is derived 1:1 from a RawRecord. Absent or unusable
// identifying fields are the empty string, never an error.
type NormalizedRecord struct {
	Raw       *RawRecord `json:"-"`
	Document  string     `json:"document"`   // digits only
	FullName  string     `json:"full_name"`  // upper-cased, accent-stripped, whitespace-collapsed
	Phone     string     `json:"phone"`      // digits only, area-code-normalized mobile
	Email     string     `json:"email"`      // lower-cased
	Address   string     `json:"address"`    // upper-cased, whitespace-collapsed
	BirthDate string     `json:"birth_date"` // ISO yyyy-mm-dd
}

// Completeness counts the non-empty identifying fields of the record. The
// merge resolver uses it as the primary signal when picking field values.
func (r *NormalizedRecord) Completeness() int {
	n := 0
	for _, v := range []string{r.Document, r.FullName, r.Phone, r.Email, r.Address, r.BirthDate} {
		if v != "" {
			n++
		}
	}
	return n
}

// IdentityKey is the deterministic key derived from a record's strongest
// available identifying field.
type IdentityKey struct {
	Method KeyMethod `json:"method"`
	Value  string    `json:"value"`
}

// String renders the key in method:value form. Two keys are the same exact
// grouping key iff their String values are byte-equal.
func (k IdentityKey) String() string {
	return string(k.Method) + ":" + k.Value
}

// CanonicalEntity is the terminal, immutable output: one resolved row per
// real-world customer.
type CanonicalEntity struct {
	EntityID                int64     `db:"entity_id" json:"entity_id"`
	KeyMethod               KeyMethod `db:"key_method" json:"key_method"`
	KeyValue                string    `db:"key_value" json:"key_value"`
	Document                string    `db:"document" json:"document"`
	FullName                string    `db:"full_name" json:"full_name"`
	Phone                   string    `db:"phone" json:"phone"`
	Email                   string    `db:"email" json:"email"`
	Address                 string    `db:"address" json:"address"`
	BirthDate               string    `db:"birth_date" json:"birth_date"`
	SourceStores            []string  `db:"-" json:"source_stores"`
	RecordSeqs              []int64   `db:"-" json:"record_seqs"`
	ContributingRecordCount int       `db:"contributing_record_count" json:"contributing_record_count"`
}

// LineageRow maps one input record's sequence number to its resolved entity.
type LineageRow struct {
	Seq      int64 `db:"seq" json:"seq"`
	EntityID int64 `db:"entity_id" json:"entity_id"`
}

// MergeAudit is one entry per accepted or flagged cluster comparison.
// Append-only; never mutated after being written.
type MergeAudit struct {
	LeftKey     IdentityKey        `json:"left_key"`
	RightKey    IdentityKey        `json:"right_key"`
	Score       float64            `json:"score"`
	FieldScores map[string]float64 `json:"field_scores"` // only fields present in both records
	Outcome     MergeOutcome       `json:"outcome"`
}

// DataIssue records a per-record degradation: a field that could not be
// normalized and was dropped to empty. Never fatal.
type DataIssue struct {
	Seq   int64     `json:"seq"`
	Kind  IssueKind `json:"kind"`
	Field string    `json:"field"`
	Value string    `json:"value"`
}

// RunSummary holds the aggregate statistics of one pipeline run.
type RunSummary struct {
	InputRecords    int               `json:"input_records"`
	Entities        int               `json:"entities"`
	KeyMethodCounts map[KeyMethod]int `json:"key_method_counts"` // records per key method
	MergesByMethod  map[KeyMethod]int `json:"merges_by_method"`  // absorbed cluster's key method
	NeedsReview     int               `json:"needs_review"`
	IssueCounts     map[IssueKind]int `json:"issue_counts"`
}

// RunResult is the complete four-artifact output of a run, plus the list of
// per-record degradations encountered.
type RunResult struct {
	RunID    uuid.UUID         `json:"run_id"`
	Entities []CanonicalEntity `json:"entities"`
	Lineage  []LineageRow      `json:"lineage"`
	Audits   []MergeAudit      `json:"audits"`
	Summary  RunSummary        `json:"summary"`
	Issues   []DataIssue       `json:"issues"`
}
