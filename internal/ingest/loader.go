// Package ingest turns per-store spreadsheet exports into RawRecord streams.
// It owns header discovery and input sequence numbering; it makes no attempt
// to interpret the cell values — that is the normalizer's job.
package ingest

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"custreg/internal/config"
	"custreg/internal/domain"
)

// Source describes one spreadsheet export to ingest.
type Source struct {
	Store string    // originating store tag
	File  string    // originating file tag
	Date  time.Time // export date tag; zero when unknown
}

// Loader reads tabular sources and assigns input sequence numbers, monotonic
// across every source loaded through the same Loader for one run.
type Loader struct {
	headerScanRows int
	nextSeq        int64
}

// NewLoader creates a Loader. Sequence numbering starts at 1.
func NewLoader(cfg *config.IngestConfig) *Loader {
	scan := cfg.HeaderScanRows
	if scan <= 0 {
		scan = 10
	}
	return &Loader{headerScanRows: scan, nextSeq: 1}
}

// Load reads one source, picking the reader by file extension (.xlsx or
// .csv).
func (l *Loader) Load(src Source, r io.Reader) ([]domain.RawRecord, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(src.File), ".csv"):
		return l.LoadCSV(src, r)
	case strings.HasSuffix(strings.ToLower(src.File), ".xlsx"):
		return l.LoadXLSX(src, r)
	default:
		return nil, fmt.Errorf("unsupported source file type: %s", src.File)
	}
}

// rowsToRecords converts header + data rows into raw records. Column names
// are preserved exactly as they appear in the source; empty cells are
// omitted, and rows with no non-empty cell are skipped.
func (l *Loader) rowsToRecords(src Source, header []string, rows [][]string) []domain.RawRecord {
	var records []domain.RawRecord
	for _, row := range rows {
		fields := make(map[string]string, len(header))
		empty := true
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			fields[h] = v
			empty = false
		}
		if empty {
			continue
		}
		records = append(records, domain.RawRecord{
			Seq:         l.nextSeq,
			SourceStore: src.Store,
			SourceFile:  src.File,
			SourceDate:  src.Date,
			Fields:      fields,
		})
		l.nextSeq++
	}
	log.Printf("ingest.Loader: %s/%s yielded %d records", src.Store, src.File, len(records))
	return records
}
