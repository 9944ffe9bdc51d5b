// Package service orchestrates end-to-end resolution runs across the
// ingestion, engine, and persistence boundaries.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"custreg/internal/config"
	"custreg/internal/domain"
	"custreg/internal/engine"
	"custreg/internal/ingest"
	"custreg/internal/port"
)

// RunService executes one full resolution run: fetch every source, ingest,
// resolve, and optionally persist the result.
type RunService interface {
	Execute(ctx context.Context, sources []string) (*domain.RunResult, error)
}

type runService struct {
	ingestCfg config.IngestConfig
	pipeline  *engine.Pipeline
	storage   port.ObjectStorage // nil when no remote sources are expected
	registry  port.RegistryStore // nil when persistence is disabled
}

// NewRunService creates a new RunService implementation. Storage and registry
// are optional collaborators; passing nil disables remote sources and
// persistence respectively.
func NewRunService(
	ingestCfg config.IngestConfig,
	pipeline *engine.Pipeline,
	storage port.ObjectStorage,
	registry port.RegistryStore,
) RunService {
	return &runService{
		ingestCfg: ingestCfg,
		pipeline:  pipeline,
		storage:   storage,
		registry:  registry,
	}
}

func (s *runService) Execute(ctx context.Context, sources []string) (*domain.RunResult, error) {
	records, err := s.loadSources(ctx, sources)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNoSourceRecords
	}
	log.Printf("service.RunService: %d records ingested from %d sources", len(records), len(sources))

	result, err := s.pipeline.Run(records)
	if err != nil {
		return nil, err
	}

	if s.registry != nil {
		if err := s.registry.SaveRun(ctx, result); err != nil {
			return nil, fmt.Errorf("persisting run: %w", err)
		}
		log.Printf("service.RunService: run %s persisted", result.RunID)
	}
	return result, nil
}

// loadSources ingests every source in argument order, so input sequence
// numbers are reproducible for a given source list.
func (s *runService) loadSources(ctx context.Context, sources []string) ([]domain.RawRecord, error) {
	loader := ingest.NewLoader(&s.ingestCfg)

	var records []domain.RawRecord
	for _, arg := range sources {
		data, err := s.fetch(ctx, arg)
		if err != nil {
			return nil, err
		}
		recs, err := loader.Load(sourceFromName(arg), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func (s *runService) fetch(ctx context.Context, arg string) ([]byte, error) {
	if bucket, key, ok := parseS3URI(arg); ok {
		if s.storage == nil {
			return nil, fmt.Errorf("remote source %s: no object storage configured", arg)
		}
		return s.storage.Download(ctx, bucket, key)
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", arg, err)
	}
	return data, nil
}

// exportDatePattern matches the yyyy-mm tag the store exports carry in their
// file names.
var exportDatePattern = regexp.MustCompile(`(20\d{2})-(0[1-9]|1[0-2])`)

// sourceFromName derives the store tag and export date from a source name
// shaped like {store}_{yyyy-mm}.xlsx. Missing pieces degrade to the bare file
// name and a zero date.
func sourceFromName(arg string) ingest.Source {
	base := filepath.Base(strings.TrimPrefix(arg, "s3://"))
	src := ingest.Source{File: base}

	name := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(name, "_"); i > 0 {
		src.Store = name[:i]
	} else {
		src.Store = name
	}
	if m := exportDatePattern.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("2006-01", m[1]+"-"+m[2]); err == nil {
			src.Date = t
		}
	}
	return src
}

func parseS3URI(arg string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(arg, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
