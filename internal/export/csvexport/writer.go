// Package csvexport serializes the four run artifacts as CSV for the
// external persistence boundary. It performs no resolution logic; every
// writer is a pure projection of already-computed state.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"custreg/internal/domain"
)

// BOM is the UTF-8 byte order mark, written first for Excel compatibility on
// Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

var entityColumns = []string{
	"Entity ID",
	"Key Method",
	"Key Value",
	"Document",
	"Full Name",
	"Phone",
	"Email",
	"Address",
	"Birth Date",
	"Source Stores",
	"Contributing Record Count",
}

var lineageColumns = []string{
	"Record Seq",
	"Entity ID",
}

var auditColumns = []string{
	"Left Key Method",
	"Left Key Value",
	"Right Key Method",
	"Right Key Value",
	"Score",
	"Name Score",
	"Document Score",
	"Phone Score",
	"Address Score",
	"Outcome",
}

var issueColumns = []string{
	"Record Seq",
	"Kind",
	"Field",
	"Raw Value",
}

// WriteEntities writes the canonical entity table.
func WriteEntities(w io.Writer, entities []domain.CanonicalEntity) error {
	return write(w, entityColumns, len(entities), func(i int) []string {
		e := &entities[i]
		return []string{
			strconv.FormatInt(e.EntityID, 10),
			string(e.KeyMethod),
			e.KeyValue,
			e.Document,
			e.FullName,
			e.Phone,
			e.Email,
			e.Address,
			e.BirthDate,
			strings.Join(e.SourceStores, ";"),
			strconv.Itoa(e.ContributingRecordCount),
		}
	})
}

// WriteLineage writes the record-to-entity lineage table.
func WriteLineage(w io.Writer, rows []domain.LineageRow) error {
	return write(w, lineageColumns, len(rows), func(i int) []string {
		return []string{
			strconv.FormatInt(rows[i].Seq, 10),
			strconv.FormatInt(rows[i].EntityID, 10),
		}
	})
}

// WriteAudits writes the merge audit table. Per-field sub-scores are blank
// for fields that were absent on either side of the comparison.
func WriteAudits(w io.Writer, audits []domain.MergeAudit) error {
	return write(w, auditColumns, len(audits), func(i int) []string {
		a := &audits[i]
		return []string{
			string(a.LeftKey.Method),
			a.LeftKey.Value,
			string(a.RightKey.Method),
			a.RightKey.Value,
			formatScore(a.Score),
			formatFieldScore(a.FieldScores, "name"),
			formatFieldScore(a.FieldScores, "document"),
			formatFieldScore(a.FieldScores, "phone"),
			formatFieldScore(a.FieldScores, "address"),
			string(a.Outcome),
		}
	})
}

// WriteIssues writes the per-record degradation list.
func WriteIssues(w io.Writer, issues []domain.DataIssue) error {
	return write(w, issueColumns, len(issues), func(i int) []string {
		return []string{
			strconv.FormatInt(issues[i].Seq, 10),
			string(issues[i].Kind),
			issues[i].Field,
			issues[i].Value,
		}
	})
}

func write(w io.Writer, columns []string, n int, row func(int) []string) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatFieldScore(scores map[string]float64, field string) string {
	v, ok := scores[field]
	if !ok {
		return ""
	}
	return formatScore(v)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans an artifact name for use as a file name.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns the dated file name for one artifact table.
// Format: {sanitized_artifact}_{YYYY-MM-DD}.csv
func BuildFilename(artifact string) string {
	return fmt.Sprintf("%s_%s.csv", SanitizeFilename(artifact), time.Now().Format("2006-01-02"))
}
