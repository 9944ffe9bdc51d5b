package domain

// KeyMethod identifies which cascade rule produced an identity key. The
// cascade is strictly ordered: a record never receives a lower-priority
// method when a higher-priority field is present.
type KeyMethod string

const (
	KeyMethodDocument      KeyMethod = "document"
	KeyMethodNameBirthdate KeyMethod = "name_birthdate"
	KeyMethodName          KeyMethod = "name"
	KeyMethodHash          KeyMethod = "hash"
)

// KeyMethods lists all methods in cascade priority order.
var KeyMethods = []KeyMethod{
	KeyMethodDocument,
	KeyMethodNameBirthdate,
	KeyMethodName,
	KeyMethodHash,
}

// MergeOutcome is the decision recorded for a scored cluster comparison.
type MergeOutcome string

const (
	// MergeOutcomeMerged means the score reached the high threshold and the
	// clusters were merged automatically.
	MergeOutcomeMerged MergeOutcome = "merged"
	// MergeOutcomeNeedsReview means the score landed in the medium band; the
	// pair was flagged for a human but not merged.
	MergeOutcomeNeedsReview MergeOutcome = "needs_review"
)

// IssueKind classifies a per-record normalization degradation.
type IssueKind string

const (
	IssueInvalidDocument  IssueKind = "invalid_document"
	IssueInvalidPhone     IssueKind = "invalid_phone"
	IssueInvalidBirthDate IssueKind = "invalid_birth_date"
)
