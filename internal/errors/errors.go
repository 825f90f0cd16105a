// Package errors defines the stable error taxonomy for atp.
//
// Declaration-time errors (configuration, depth, duplicate or invalid
// labels) are fatal and reported immediately with the location that
// triggered them. Undefined-label errors found during resolution are
// aggregated into a single ResolveError so one run reports every fault.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// Configuration indicates an invalid or out-of-order setup directive,
	// such as changing the identifier depth after identities were issued
	Configuration ErrorCode = "CONFIGURATION"
	// Depth indicates a section was opened beyond the configured identifier depth
	Depth ErrorCode = "DEPTH"
	// DuplicateLabel indicates a label was bound more than once
	DuplicateLabel ErrorCode = "DUPLICATE_LABEL"
	// InvalidLabel indicates a label or placeholder with invalid syntax
	InvalidLabel ErrorCode = "INVALID_LABEL"
	// UndefinedLabel indicates a placeholder referencing a label never bound
	UndefinedLabel ErrorCode = "UNDEFINED_LABEL"
	// StoreWrite indicates a persisted store could not be written at save time
	StoreWrite ErrorCode = "STORE_WRITE"
	// Internal indicates an unexpected error
	Internal ErrorCode = "INTERNAL"
)

// Field is one key/value pair describing the context of an error.
// Fields are appended as the error propagates up, most specific first.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ScriptError represents a fault in a user-provided test specification
type ScriptError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Remedy  string    `json:"remedy,omitempty"`
	Fields  []Field   `json:"fields,omitempty"`
	cause   error
}

// New creates a new ScriptError
func New(code ErrorCode, message string) *ScriptError {
	return &ScriptError{Code: code, Message: message}
}

// Wrap creates a new ScriptError with an underlying cause
func Wrap(code ErrorCode, message string, cause error) *ScriptError {
	return &ScriptError{Code: code, Message: message, cause: cause}
}

// WithRemedy attaches a suggested remedy to the error
func (e *ScriptError) WithRemedy(remedy string) *ScriptError {
	e.Remedy = remedy
	return e
}

// WithField appends a context field identifying where the error occurred
func (e *ScriptError) WithField(key string, value interface{}) *ScriptError {
	e.Fields = append(e.Fields, Field{Key: key, Value: fmt.Sprint(value)})
	return e
}

// Error implements the error interface
func (e *ScriptError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	// Fields accumulate most specific first; render most general first
	// so the message reads top-down into the fault.
	for i := len(e.Fields) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "; %s: %s", e.Fields[i].Key, e.Fields[i].Value)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *ScriptError) Unwrap() error {
	return e.cause
}

// ResolveError aggregates every undefined-label fault found during the
// resolution pass so a single run reports all of them together.
type ResolveError struct {
	Faults []*ScriptError `json:"faults"`
}

// Error implements the error interface
func (e *ResolveError) Error() string {
	lines := make([]string, 0, len(e.Faults)+1)
	lines = append(lines, fmt.Sprintf("%d unresolved label reference(s):", len(e.Faults)))
	for _, f := range e.Faults {
		lines = append(lines, "  "+f.Error())
	}
	return strings.Join(lines, "\n")
}

// CodeOf extracts the error code from an error chain, or Internal if the
// chain contains no ScriptError.
func CodeOf(err error) ErrorCode {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Code
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return UndefinedLabel
	}
	return Internal
}

// Is reports whether any error in err's chain is a ScriptError with the
// given code.
func Is(err error, code ErrorCode) bool {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
