package pipeline

import "fmt"

// InputError reports a missing file or directory. Aborts the run.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// SchemaError reports a required column absent from a source file.
// Aborts that file's ingestion.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: required column %q absent", e.Table, e.Column)
}

// ParseError reports a single row that failed type coercion. Recorded and
// skipped, never fatal.
type ParseError struct {
	Table  string
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table %s line %d: column %q: %v", e.Table, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// JoinError reports unexpected cardinality in a join. Logged as a warning;
// the build keeps going.
type JoinError struct {
	Left  string
	Right string
	Key   string
	Rows  int
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join %s->%s: key %q matches %d rows", e.Left, e.Right, e.Key, e.Rows)
}

// AggregationError reports insufficient data for one vendor metric.
// The metric is reported as null and the vendor keeps processing.
type AggregationError struct {
	Vendor string
	Metric string
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("vendor %s: metric %s: %s", e.Vendor, e.Metric, e.Reason)
}
