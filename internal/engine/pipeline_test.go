package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custreg/internal/config"
	"custreg/internal/domain"
)

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		Weights:         config.FieldWeights{Name: 0.4, Document: 0.3, Phone: 0.2, Address: 0.1},
		Thresholds:      config.Thresholds{High: 0.9, Medium: 0.75},
		DefaultAreaCode: "11",
		DocumentLength:  11,
		Workers:         2,
	}
}

func rawRecord(seq int64, store string, fields map[string]string) domain.RawRecord {
	return domain.RawRecord{
		Seq:         seq,
		SourceStore: store,
		SourceFile:  store + "_2024-01.xlsx",
		SourceDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Fields:      fields,
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Weights.Name = 0.9

	p, err := New(cfg)

	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrWeightsSum)
	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRun_SameCustomerAcrossStoresResolvesToOneEntity(t *testing.T) {
	p, err := New(testEngineConfig())
	require.NoError(t, err)

	records := []domain.RawRecord{
		rawRecord(1, "centro", map[string]string{
			"CPF":     "123.456.789-00",
			"Nome":    "Maria Silva",
			"Celular": "(11) 98888-7777",
		}),
		rawRecord(2, "norte", map[string]string{
			"Nome Cliente": "maria  silva",
			"Telefone":     "11988887777",
		}),
	}

	result, err := p.Run(records)
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	e := result.Entities[0]
	assert.Equal(t, int64(1), e.EntityID)
	assert.Equal(t, domain.KeyMethodDocument, e.KeyMethod)
	assert.Equal(t, "12345678900", e.Document)
	assert.Equal(t, "MARIA SILVA", e.FullName)
	assert.Equal(t, "11988887777", e.Phone)
	assert.Equal(t, 2, e.ContributingRecordCount)
	assert.Equal(t, []string{"centro", "norte"}, e.SourceStores)

	require.Len(t, result.Lineage, 2)
	assert.Equal(t, domain.LineageRow{Seq: 1, EntityID: 1}, result.Lineage[0])
	assert.Equal(t, domain.LineageRow{Seq: 2, EntityID: 1}, result.Lineage[1])

	require.Len(t, result.Audits, 1)
	assert.Equal(t, domain.MergeOutcomeMerged, result.Audits[0].Outcome)
}

func TestRun_DistinctDocumentsStayDistinct(t *testing.T) {
	p, err := New(testEngineConfig())
	require.NoError(t, err)

	// Same name and phone, but two verified documents.
	records := []domain.RawRecord{
		rawRecord(1, "centro", map[string]string{
			"CPF":     "111.111.111-11",
			"Nome":    "Joao Souza",
			"Celular": "11977776666",
		}),
		rawRecord(2, "centro", map[string]string{
			"CPF":     "222.222.222-22",
			"Nome":    "Joao Souza",
			"Celular": "11977776666",
		}),
	}

	result, err := p.Run(records)
	require.NoError(t, err)

	assert.Len(t, result.Entities, 2)
	assert.Empty(t, result.Audits)
}

func TestRun_OutputIndependentOfInputOrder(t *testing.T) {
	records := []domain.RawRecord{
		rawRecord(1, "centro", map[string]string{
			"CPF": "123.456.789-00", "Nome": "Maria Silva", "Celular": "(11) 98888-7777",
		}),
		rawRecord(2, "norte", map[string]string{
			"Nome": "maria silva", "Celular": "11988887777",
		}),
		rawRecord(3, "sul", map[string]string{
			"Nome": "Carlos Pereira", "Celular": "11955554444",
		}),
		rawRecord(4, "centro", map[string]string{
			"CPF": "222.222.222-22", "Nome": "Joao Souza",
		}),
	}
	reversed := make([]domain.RawRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	p, err := New(testEngineConfig())
	require.NoError(t, err)

	forward, err := p.Run(records)
	require.NoError(t, err)
	backward, err := p.Run(reversed)
	require.NoError(t, err)

	assert.Equal(t, forward.Entities, backward.Entities)
	assert.Equal(t, forward.Lineage, backward.Lineage)
	assert.Equal(t, forward.Audits, backward.Audits)
	assert.Equal(t, forward.Summary, backward.Summary)
}

func TestRun_DegradedFieldsSurfaceAsIssues(t *testing.T) {
	p, err := New(testEngineConfig())
	require.NoError(t, err)

	records := []domain.RawRecord{
		rawRecord(1, "centro", map[string]string{
			"CPF":     "123", // too short, degrades to the name key
			"Nome":    "Maria Silva",
			"Celular": "4444", // not a dialable mobile
		}),
	}

	result, err := p.Run(records)
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, domain.KeyMethodName, result.Entities[0].KeyMethod)
	assert.Empty(t, result.Entities[0].Document)

	require.Len(t, result.Issues, 2)
	kinds := map[domain.IssueKind]bool{}
	for _, issue := range result.Issues {
		kinds[issue.Kind] = true
		assert.Equal(t, int64(1), issue.Seq)
	}
	assert.True(t, kinds[domain.IssueInvalidDocument])
	assert.True(t, kinds[domain.IssueInvalidPhone])
}

func TestRun_SummaryCounts(t *testing.T) {
	p, err := New(testEngineConfig())
	require.NoError(t, err)

	records := []domain.RawRecord{
		rawRecord(1, "centro", map[string]string{
			"CPF": "123.456.789-00", "Nome": "Maria Silva", "Celular": "(11) 98888-7777",
		}),
		rawRecord(2, "norte", map[string]string{
			"Nome": "maria silva", "Celular": "11988887777",
		}),
		rawRecord(3, "sul", map[string]string{
			"Nome": "Carlos Pereira",
		}),
	}

	result, err := p.Run(records)
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 3, s.InputRecords)
	assert.Equal(t, 2, s.Entities)
	assert.Equal(t, 1, s.KeyMethodCounts[domain.KeyMethodDocument])
	assert.Equal(t, 2, s.KeyMethodCounts[domain.KeyMethodName])
	assert.Equal(t, 1, s.MergesByMethod[domain.KeyMethodName])
	assert.Zero(t, s.NeedsReview)
	assert.Empty(t, s.IssueCounts)
}

func TestRun_EmptyInput(t *testing.T) {
	p, err := New(testEngineConfig())
	require.NoError(t, err)

	result, err := p.Run(nil)
	require.NoError(t, err)

	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Lineage)
	assert.Empty(t, result.Audits)
	assert.Zero(t, result.Summary.InputRecords)
}
