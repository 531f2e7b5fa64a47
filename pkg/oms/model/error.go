package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("invalid strategy status transition")
	ErrDuplicateID       = errors.New("duplicate strategy id")
)

// ValidationError carries every problem found in a request. Nothing was sent to the exchange.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// APIError is a failed exchange call: a non-success HTTP status or a transport failure.
type APIError struct {
	Method     string
	Endpoint   string
	Params     map[string]string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: %s %s", e.Method, e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " code %d", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Params) > 0 {
		keys := make([]string, 0, len(e.Params))
		for k := range e.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+e.Params[k])
		}
		fmt.Fprintf(&b, " (params: %s)", strings.Join(pairs, ", "))
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown strategy, run or symbol.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ItemFailure is one failed element of a batch operation.
type ItemFailure struct {
	Item string
	Err  error
}

// PartialFailure is returned when a multi-order operation only partly succeeded.
// Whatever succeeded stays in effect.
type PartialFailure struct {
	Op        string
	Succeeded int
	Failures  []ItemFailure
}

// NewPartialFailure returns nil when there is nothing to report.
func NewPartialFailure(op string, succeeded int, failures []ItemFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return &PartialFailure{Op: op, Succeeded: succeeded, Failures: failures}
}

func (e *PartialFailure) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%s: %v", f.Item, f.Err))
	}
	return fmt.Sprintf("%s partially failed (%d succeeded, %d failed): %s",
		e.Op, e.Succeeded, len(e.Failures), strings.Join(msgs, "; "))
}

func (e *PartialFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
