package normalize

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"custreg/internal/config"
	"custreg/internal/domain"
)

// Normalizer canonicalizes the identifying fields of raw records. It is pure
// and total: every RawRecord maps to exactly one NormalizedRecord, and an
// absent or unusable field degrades to the empty string instead of failing
// the record.
type Normalizer struct {
	defaultAreaCode string
	documentLength  int
}

// NewNormalizer creates a Normalizer from the engine configuration.
func NewNormalizer(cfg *config.EngineConfig) *Normalizer {
	return &Normalizer{
		defaultAreaCode: cfg.DefaultAreaCode,
		documentLength:  cfg.DocumentLength,
	}
}

// birthDateLayouts are tried in order; the first successful parse wins.
var birthDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
}

// Normalize derives the NormalizedRecord for one raw record and reports any
// per-record degradations encountered. It never fails.
func (n *Normalizer) Normalize(raw *domain.RawRecord) (domain.NormalizedRecord, []domain.DataIssue) {
	fields := headerIndex(raw.Fields)
	rec := domain.NormalizedRecord{Raw: raw}
	var issues []domain.DataIssue

	report := func(kind domain.IssueKind, field, value string) {
		issues = append(issues, domain.DataIssue{Seq: raw.Seq, Kind: kind, Field: field, Value: value})
	}

	if v := lookup(fields, FieldDocument); v != "" {
		doc, ok := n.normalizeDocument(v)
		if !ok {
			report(domain.IssueInvalidDocument, FieldDocument, v)
		}
		rec.Document = doc
	}
	rec.FullName = NormalizeName(lookup(fields, FieldName))
	if v := lookup(fields, FieldPhone); v != "" {
		phone, ok := n.normalizePhone(v)
		if !ok {
			report(domain.IssueInvalidPhone, FieldPhone, v)
		}
		rec.Phone = phone
	}
	rec.Email = normalizeEmail(lookup(fields, FieldEmail))
	rec.Address = normalizeAddress(lookup(fields, FieldAddress))
	if v := lookup(fields, FieldBirthDate); v != "" {
		date, ok := normalizeBirthDate(v)
		if !ok {
			report(domain.IssueInvalidBirthDate, FieldBirthDate, v)
		}
		rec.BirthDate = date
	}

	return rec, issues
}

// headerIndex maps accent-stripped, lower-cased, separator-collapsed column
// names to their values. Headers are visited in sorted order so a duplicate
// normalized header resolves the same way on every run.
func headerIndex(fields map[string]string) map[string]string {
	headers := make([]string, 0, len(fields))
	for h := range fields {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	idx := make(map[string]string, len(fields))
	for _, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = strings.TrimSpace(fields[h])
		}
	}
	return idx
}

// lookup tries the logical field's synonyms in priority order and returns the
// first non-empty value.
func lookup(fields map[string]string, logical string) string {
	for _, syn := range fieldSynonyms[logical] {
		if v := fields[syn]; v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ToLower(stripDiacritics(h))
	var b strings.Builder
	for _, r := range h {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// normalizeDocument strips non-digits and accepts the result only if its
// length matches the expected national document length. The canonical form is
// the unformatted digit string; display formatting is a presentation concern.
func (n *Normalizer) normalizeDocument(v string) (string, bool) {
	digits := digitsOnly(v)
	if digits == "" {
		return "", true
	}
	if len(digits) != n.documentLength {
		return "", false
	}
	return digits, true
}

// normalizePhone canonicalizes a phone number to area code + 9-digit mobile
// line. A number that cannot plausibly be a mobile line (wrong total length,
// or missing the leading 9 mobile marker) is treated as absent: receivables
// contact lists are full of landlines and those carry no identity signal.
func (n *Normalizer) normalizePhone(v string) (string, bool) {
	digits := digitsOnly(v)
	if digits == "" {
		return "", true
	}

	// Country code and carrier-select prefixes.
	if len(digits) > 11 && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) == 12 && strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}

	// Local number without an area code.
	if len(digits) == 8 || len(digits) == 9 {
		digits = n.defaultAreaCode + digits
	}

	if len(digits) != 11 || digits[2] != '9' {
		return "", false
	}
	return digits, true
}

// NormalizeName upper-cases, strips diacritics, drops non-letter punctuation
// and collapses internal whitespace. An empty result stays empty.
func NormalizeName(v string) string {
	v = stripDiacritics(v)
	var b strings.Builder
	for _, r := range v {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.ToUpper(strings.Join(strings.Fields(b.String()), " "))
}

func normalizeEmail(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if !strings.Contains(v, "@") {
		return ""
	}
	return v
}

func normalizeAddress(v string) string {
	v = stripDiacritics(v)
	var b strings.Builder
	for _, r := range v {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.ToUpper(strings.Join(strings.Fields(b.String()), " "))
}

// normalizeBirthDate tries the fixed set of date layouts and renders the
// first match as an ISO date.
func normalizeBirthDate(v string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripDiacritics removes combining marks after NFD decomposition. The chain
// is built per call: transform.Chain carries internal buffers and records are
// normalized concurrently.
func stripDiacritics(v string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripper, v)
	if err != nil {
		return v
	}
	return out
}
