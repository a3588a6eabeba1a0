package model

import (
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// MalformedRecordError reports a raw posting that cannot be normalized.
// Callers skip and log the record rather than aborting the run.
type MalformedRecordError struct {
	Source string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record from %s: %s", e.Source, e.Reason)
}

// TableIOError reports a load or save failure on the persisted table.
// Fatal for the invocation.
type TableIOError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *TableIOError) Error() string {
	return fmt.Sprintf("table %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TableIOError) Unwrap() error {
	return e.Err
}

// ScoringError reports a failed scoring call or an unusable backend response
// for one batch. Batches merged before it stay persisted; batches after it
// are not merged in the same run.
type ScoringError struct {
	Offset int // offset of the failed batch within the run's window
	Err    error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring batch at offset %d: %v", e.Offset, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}
