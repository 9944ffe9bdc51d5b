package domain

import (
	"errors"
	"fmt"
)

var (
	ErrWeightsSum      = errors.New("field weights must sum to 1.0")
	ErrNegativeWeight  = errors.New("field weights must not be negative")
	ErrThresholdRange  = errors.New("similarity thresholds must satisfy 0 <= medium <= high <= 1")
	ErrDocumentLength  = errors.New("expected document length must be positive")
	ErrNoSourceRecords = errors.New("run has no input records")
)

// ConfigError is a fatal configuration error raised before any record is
// processed. The run does not begin.
type ConfigError struct {
	Option string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Option, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IntegrityError indicates a pipeline-stage contract violation, such as a
// record left without a cluster at entity-ID assignment. It aborts the run
// rather than emitting an incomplete registry.
type IntegrityError struct {
	Seq    int64
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("registry integrity violation at record seq %d: %s", e.Seq, e.Detail)
}
