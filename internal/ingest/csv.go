package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"custreg/internal/domain"
)

// bom is the UTF-8 byte order mark some store exports prepend.
var bom = []byte{0xEF, 0xBB, 0xBF}

// LoadCSV reads an already-tabular CSV export. The first row is the header;
// ragged rows are tolerated since partial fields are the norm in these
// exports.
func (l *Loader) LoadCSV(src Source, r io.Reader) ([]domain.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.File, err)
	}
	data = bytes.TrimPrefix(data, bom)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", src.File, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv %s is empty", src.File)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return l.rowsToRecords(src, header, rows[1:]), nil
}
