// Package pipeline defines the error taxonomy shared by every stage of the
// conversion pipeline. Each class carries a human-readable, stage-prefixed
// message and unwraps to its cause so callers can use errors.As at the unit
// boundary.
package pipeline

import "fmt"

// ParseError reports malformed source content: broken CSV quoting, invalid
// JSON, a corrupt workbook. Partial results are always discarded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to parse input: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FormatError reports structurally valid but semantically wrong input or an
// unsupported conversion pairing.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return e.Msg }

// ValidationError reports bad script or expression syntax, or a malformed
// rule document, caught before any record is processed.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransformError reports an expression or script failing during evaluation.
// It aborts the in-progress transform step but never rolls back an already
// written converted file.
type TransformError struct {
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// IOError reports a filesystem failure: missing file, permission, or a write
// that could not complete.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
