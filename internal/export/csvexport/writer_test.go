package csvexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custreg/internal/domain"
)

func parseCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, BOM), "output must start with the UTF-8 BOM")
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, BOM))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteEntities(t *testing.T) {
	entities := []domain.CanonicalEntity{
		{
			EntityID:                1,
			KeyMethod:               domain.KeyMethodDocument,
			KeyValue:                "12345678900",
			Document:                "12345678900",
			FullName:                "MARIA SILVA",
			Phone:                   "11988887777",
			Email:                   "maria@example.com",
			Address:                 "RUA DAS FLORES 12",
			BirthDate:               "1990-05-01",
			SourceStores:            []string{"centro", "norte"},
			ContributingRecordCount: 2,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEntities(&buf, entities))

	rows := parseCSV(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, entityColumns, rows[0])
	assert.Equal(t, []string{
		"1", "document", "12345678900", "12345678900", "MARIA SILVA",
		"11988887777", "maria@example.com", "RUA DAS FLORES 12", "1990-05-01",
		"centro;norte", "2",
	}, rows[1])
}

func TestWriteLineage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLineage(&buf, []domain.LineageRow{
		{Seq: 1, EntityID: 1},
		{Seq: 2, EntityID: 1},
		{Seq: 3, EntityID: 2},
	}))

	rows := parseCSV(t, &buf)
	require.Len(t, rows, 4)
	assert.Equal(t, lineageColumns, rows[0])
	assert.Equal(t, []string{"2", "1"}, rows[2])
}

func TestWriteAudits(t *testing.T) {
	audits := []domain.MergeAudit{
		{
			LeftKey:  domain.IdentityKey{Method: domain.KeyMethodDocument, Value: "12345678900"},
			RightKey: domain.IdentityKey{Method: domain.KeyMethodName, Value: "MARIA SILVA"},
			Score:    0.95,
			// Document and address were absent on one side.
			FieldScores: map[string]float64{"name": 1, "phone": 0.875},
			Outcome:     domain.MergeOutcomeMerged,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAudits(&buf, audits))

	rows := parseCSV(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, auditColumns, rows[0])
	assert.Equal(t, []string{
		"document", "12345678900", "name", "MARIA SILVA",
		"0.9500", "1.0000", "", "0.8750", "", "merged",
	}, rows[1])
}

func TestWriteIssues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIssues(&buf, []domain.DataIssue{
		{Seq: 4, Kind: domain.IssueInvalidDocument, Field: "document", Value: "123"},
	}))

	rows := parseCSV(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"4", "invalid_document", "document", "123"}, rows[1])
}

func TestWriteEntities_EmptyStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntities(&buf, nil))

	rows := parseCSV(t, &buf)
	require.Len(t, rows, 1)
	assert.Equal(t, entityColumns, rows[0])
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"entities", "entities"},
		{"merge audits", "merge_audits"},
		{"relatório__final!", "relat_rio_final"},
		{"__x__", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestBuildFilename(t *testing.T) {
	got := BuildFilename("entities")
	want := fmt.Sprintf("entities_%s.csv", time.Now().Format("2006-01-02"))
	assert.Equal(t, want, got)
	assert.True(t, strings.HasSuffix(got, ".csv"))
}
