// Command dedupe runs the full identity resolution pipeline over a set of
// per-store spreadsheet exports and writes the canonical registry artifacts.
//
// Usage:
//
//	dedupe [-db] [-out DIR] SOURCE...
//
// Each SOURCE is a local .xlsx/.csv path or an s3://bucket/key URI. The store
// tag and export date are derived from the file name, which the exports
// follow as {store}_{yyyy-mm}.xlsx.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"custreg/internal/config"
	"custreg/internal/domain"
	"custreg/internal/engine"
	"custreg/internal/export/csvexport"
	"custreg/internal/port"
	"custreg/internal/repository/postgres"
	"custreg/internal/service"
	"custreg/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	persist := flag.Bool("db", false, "persist the run to PostgreSQL")
	outDir := flag.String("out", "", "output directory for CSV artifacts (overrides CUSTREG_EXPORT_DIR)")
	flag.Parse()

	if flag.NArg() == 0 {
		return fmt.Errorf("no sources given; usage: dedupe [-db] [-out DIR] SOURCE...")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *outDir != "" {
		cfg.Export.Dir = *outDir
	}

	pipeline, err := engine.New(&cfg.Engine)
	if err != nil {
		return err
	}

	var storage port.ObjectStorage
	if hasRemoteSource(flag.Args()) {
		if storage, err = s3.NewS3Client(&cfg.S3); err != nil {
			return err
		}
	}

	var registry port.RegistryStore
	if *persist {
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer func() { _ = db.Close() }()
		registry = postgres.NewRegistryRepo(db)
	}

	runner := service.NewRunService(cfg.Ingest, pipeline, storage, registry)
	result, err := runner.Execute(context.Background(), flag.Args())
	if err != nil {
		return err
	}
	logSummary(&result.Summary)

	return writeArtifacts(cfg.Export.Dir, result)
}

func hasRemoteSource(args []string) bool {
	for _, arg := range args {
		if strings.HasPrefix(arg, "s3://") {
			return true
		}
	}
	return false
}

func writeArtifacts(dir string, result *domain.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	artifacts := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"entities", func(f *os.File) error { return csvexport.WriteEntities(f, result.Entities) }},
		{"lineage", func(f *os.File) error { return csvexport.WriteLineage(f, result.Lineage) }},
		{"merge_audits", func(f *os.File) error { return csvexport.WriteAudits(f, result.Audits) }},
		{"data_issues", func(f *os.File) error { return csvexport.WriteIssues(f, result.Issues) }},
	}
	for _, a := range artifacts {
		path := filepath.Join(dir, csvexport.BuildFilename(a.name))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := a.write(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", path, err)
		}
		log.Printf("dedupe: wrote %s", path)
	}

	summary, err := json.MarshalIndent(result.Summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	path := filepath.Join(dir, "summary_"+time.Now().Format("2006-01-02")+".json")
	if err := os.WriteFile(path, summary, 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	log.Printf("dedupe: wrote %s", path)
	return nil
}

func logSummary(s *domain.RunSummary) {
	log.Printf("dedupe: %d records resolved into %d entities (%d flagged for review)",
		s.InputRecords, s.Entities, s.NeedsReview)
	for _, method := range domain.KeyMethods {
		if n := s.KeyMethodCounts[method]; n > 0 {
			log.Printf("dedupe:   key method %-14s %6d records, %d merged in", method, n, s.MergesByMethod[method])
		}
	}
	kinds := make([]string, 0, len(s.IssueCounts))
	for kind := range s.IssueCounts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		log.Printf("dedupe:   degraded field %-18s %d records", kind, s.IssueCounts[domain.IssueKind(kind)])
	}
}
