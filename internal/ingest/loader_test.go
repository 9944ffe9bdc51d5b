package ingest

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"custreg/internal/config"
)

func testLoader() *Loader {
	return NewLoader(&config.IngestConfig{HeaderScanRows: 10})
}

// workbook builds an in-memory xlsx with the given rows on the first sheet.
func workbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestLoadCSV(t *testing.T) {
	l := testLoader()
	src := Source{Store: "centro", File: "centro_2024-01.csv", Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}

	csvData := "\xEF\xBB\xBFNome,CPF,Celular\n" +
		"Maria Silva,123.456.789-00,(11) 98888-7777\n" +
		",,\n" +
		"Carlos Pereira,,11955554444\n"

	records, err := l.LoadCSV(src, strings.NewReader(csvData))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].Seq)
	assert.Equal(t, "centro", records[0].SourceStore)
	assert.Equal(t, "centro_2024-01.csv", records[0].SourceFile)
	assert.Equal(t, src.Date, records[0].SourceDate)
	assert.Equal(t, map[string]string{
		"Nome":    "Maria Silva",
		"CPF":     "123.456.789-00",
		"Celular": "(11) 98888-7777",
	}, records[0].Fields)

	// Empty cells are omitted, fully empty rows are skipped.
	assert.Equal(t, int64(2), records[1].Seq)
	assert.Equal(t, map[string]string{
		"Nome":    "Carlos Pereira",
		"Celular": "11955554444",
	}, records[1].Fields)
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := testLoader().LoadCSV(Source{Store: "centro", File: "x.csv"}, strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadXLSX_DiscoversHeaderBelowTitleRows(t *testing.T) {
	l := testLoader()
	r := workbook(t, [][]interface{}{
		{"Relatório de Clientes - Loja Centro"},
		{},
		{"Nome", "CPF", "Celular"},
		{"Maria Silva", "123.456.789-00", "(11) 98888-7777"},
		{"Joao Souza", "222.222.222-22"},
	})

	records, err := l.LoadXLSX(Source{Store: "centro", File: "centro_2024-01.xlsx"}, r)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Maria Silva", records[0].Fields["Nome"])
	assert.Equal(t, "222.222.222-22", records[1].Fields["CPF"])
	_, hasPhone := records[1].Fields["Celular"]
	assert.False(t, hasPhone)
}

func TestLoadXLSX_NoHeaderRow(t *testing.T) {
	l := testLoader()
	r := workbook(t, [][]interface{}{
		{"Relatório"},
		{"sem cabeçalho"},
	})

	_, err := l.LoadXLSX(Source{Store: "centro", File: "centro.xlsx"}, r)
	assert.ErrorContains(t, err, "no header row")
}

func TestLoad_SequenceMonotonicAcrossSources(t *testing.T) {
	l := testLoader()

	first, err := l.Load(
		Source{Store: "centro", File: "centro.csv"},
		strings.NewReader("Nome\nMaria Silva\nCarlos Pereira\n"),
	)
	require.NoError(t, err)
	second, err := l.Load(
		Source{Store: "norte", File: "norte.csv"},
		strings.NewReader("Nome\nJoao Souza\n"),
	)
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 1)
	assert.Equal(t, int64(1), first[0].Seq)
	assert.Equal(t, int64(2), first[1].Seq)
	assert.Equal(t, int64(3), second[0].Seq)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := testLoader().Load(Source{Store: "centro", File: "clientes.pdf"}, strings.NewReader(""))
	assert.ErrorContains(t, err, "unsupported source file type")
}
