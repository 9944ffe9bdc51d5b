package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"custreg/internal/domain"
	"custreg/internal/engine/normalize"
)

// LoadXLSX reads the first sheet of a workbook export. The per-store exports
// rarely put the header on row one — title rows and blank padding are common
// — so the header row is discovered by scanning the first few rows for the
// one carrying the most recognized column names.
func (l *Loader) LoadXLSX(src Source, r io.Reader) ([]domain.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", src.File, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", src.File)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, src.File, err)
	}

	headerRow := l.findHeaderRow(rows)
	if headerRow < 0 {
		return nil, fmt.Errorf("no header row found in first %d rows of %s", l.headerScanRows, src.File)
	}

	header := make([]string, len(rows[headerRow]))
	for i, h := range rows[headerRow] {
		header[i] = strings.TrimSpace(h)
	}
	return l.rowsToRecords(src, header, rows[headerRow+1:]), nil
}

// findHeaderRow returns the index of the scanned row with the most cells
// matching a known column synonym, requiring at least one match. Earlier rows
// win ties.
func (l *Loader) findHeaderRow(rows [][]string) int {
	best, bestMatches := -1, 0
	limit := l.headerScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		matches := 0
		for _, cell := range rows[i] {
			if normalize.KnownHeader(cell) {
				matches++
			}
		}
		if matches > bestMatches {
			best, bestMatches = i, matches
		}
	}
	return best
}
